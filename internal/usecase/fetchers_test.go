package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	applogger "SectorPulse/pkg/logger"
)

// storeSeries is a warehouse stand-in: it serves series and records writes.
type storeSeries struct {
	fakeSeries
	mu     sync.Mutex
	stored map[string]string
}

func (s *storeSeries) StoreSeries(_ context.Context, entityID, source string, _ []models.TimeSeriesPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	s.stored[entityID] = source
	return nil
}

func TestSeriesFetcherWritesBackUpstreamBars(t *testing.T) {
	yahoo := &fakeSeries{name: "yahoo", data: map[string][]models.TimeSeriesPoint{
		"A": flatSeries(nil),
	}}
	wh := &storeSeries{fakeSeries: fakeSeries{name: "warehouse", data: map[string][]models.TimeSeriesPoint{
		"B": flatSeries(nil),
	}}}
	f := NewSeriesFetcher(newPool(), newController(), []domrepo.SeriesSource{yahoo, wh}, wh, applogger.Nop())

	series, degradations := f.FetchSeries(context.Background(), "run", []models.Entity{{ID: "A"}, {ID: "B"}, {ID: "A"}}, oct(1), oct(16))

	require.Len(t, series, 2)
	assert.Len(t, series["A"], len(tradingDays))
	assert.Len(t, series["B"], len(tradingDays))
	assert.Equal(t, map[string]string{"A": "yahoo"}, wh.stored, "bars read from the warehouse are not written back")
	require.Len(t, degradations, 1)
	assert.Equal(t, "B", degradations[0].Entity)
	assert.Equal(t, "warehouse", degradations[0].Strategy)
}

func TestFlowFetcherMissingEntitiesAreEmpty(t *testing.T) {
	flows := &fakeFlow{name: "naver", data: map[string][]models.InvestorFlowRecord{
		"A": {{Date: oct(16), Institution: 1, Foreign: 2, Retail: -3}},
	}}
	f := NewFlowFetcher(newPool(), newController(), []domrepo.FlowSource{flows})

	out, degradations := f.FetchFlows(context.Background(), "", []models.Entity{{ID: "A"}, {ID: "Z"}}, oct(1), time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC))

	assert.Len(t, out["A"], 1)
	v, ok := out["Z"]
	assert.True(t, ok)
	assert.Empty(t, v)
	require.Len(t, degradations, 1)
	assert.Equal(t, models.StatusUnavailable, degradations[0].Status)
	assert.Equal(t, NeedFlow, degradations[0].Need)
}
