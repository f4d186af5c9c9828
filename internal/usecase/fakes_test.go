package usecase

import (
	"context"
	"sync"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/cascade"
	"SectorPulse/internal/service/fetchpool"
	"SectorPulse/pkg/cache"
	applogger "SectorPulse/pkg/logger"
)

var asOf = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

// tradingDays are the ten weekdays ending on asOf, oldest first.
var tradingDays = []int{5, 6, 7, 8, 9, 12, 13, 14, 15, 16}

func oct(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

// flatSeries has close 100 on every trading day except overrides.
func flatSeries(overrides map[int]float64) []models.TimeSeriesPoint {
	pts := make([]models.TimeSeriesPoint, 0, len(tradingDays))
	for _, d := range tradingDays {
		c := 100.0
		if v, ok := overrides[d]; ok {
			c = v
		}
		pts = append(pts, models.TimeSeriesPoint{Date: oct(d), Close: c, Volume: 1000})
	}
	return pts
}

type fakeSeries struct {
	name string
	data map[string][]models.TimeSeriesPoint
	errs map[string]error
	// served runs after each fetch returns its data.
	served func(id string)

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeSeries) Name() string { return f.name }

func (f *fakeSeries) FetchSeries(_ context.Context, e models.Entity, _, _ time.Time) ([]models.TimeSeriesPoint, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[e.ID]++
	f.mu.Unlock()
	if f.served != nil {
		defer f.served(e.ID)
	}
	if err := f.errs[e.ID]; err != nil {
		return nil, err
	}
	return f.data[e.ID], nil
}

func (f *fakeSeries) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type fakeFlow struct {
	name string
	data map[string][]models.InvestorFlowRecord
}

func (f *fakeFlow) Name() string { return f.name }

func (f *fakeFlow) FetchFlow(_ context.Context, e models.Entity, _, _ time.Time) ([]models.InvestorFlowRecord, error) {
	recs, ok := f.data[e.ID]
	if !ok {
		return nil, domain.ErrSourceUnavailable
	}
	return recs, nil
}

type fakeSnapshot struct {
	byDate map[string]map[string]models.Fundamentals
	err    error
}

func (f *fakeSnapshot) Name() string { return "krx" }

func (f *fakeSnapshot) FetchSnapshot(_ context.Context, asof time.Time, _ []models.Entity) (map[string]models.Fundamentals, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byDate[asof.Format("20060102")], nil
}

type fakeFundamentals struct {
	name string
	data map[string]models.Fundamentals
}

func (f *fakeFundamentals) Name() string { return f.name }

func (f *fakeFundamentals) FetchFundamentals(_ context.Context, e models.Entity, _ time.Time) (models.Fundamentals, error) {
	v, ok := f.data[e.ID]
	if !ok {
		return models.Fundamentals{}, domain.ErrDataMissing
	}
	return v, nil
}

type fakeNews struct {
	items map[string][]models.NewsItem
}

func (f *fakeNews) Search(_ context.Context, query string) ([]models.NewsItem, error) {
	items, ok := f.items[query]
	if !ok {
		return nil, domain.ErrSourceUnavailable
	}
	return items, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	sector   []*models.SectorReport
	screener []*models.ScreenerReport
}

func (p *fakePublisher) PublishSectorReport(_ context.Context, r *models.SectorReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sector = append(p.sector, r)
	return nil
}

func (p *fakePublisher) PublishScreenerReport(_ context.Context, r *models.ScreenerReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screener = append(p.screener, r)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newPool() *fetchpool.Pool {
	return fetchpool.New(fetchpool.Config{Workers: 4}, cache.NewMemoryCache(), applogger.Nop(), nil)
}

func newController() *cascade.Controller {
	return cascade.NewController(applogger.Nop(), nil)
}

func ratio(v float64) *float64 { return &v }
