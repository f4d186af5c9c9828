package usecase

import (
	"context"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/service/cascade"
	"SectorPulse/internal/service/fetchpool"
	applogger "SectorPulse/pkg/logger"
)

// Need kinds.
const (
	NeedSeries   = "series"
	NeedFlow     = "flow"
	NeedSnapshot = "snapshot"
	NeedNews     = "news"
)

// SeriesStore keeps a copy of bars fetched from upstream sources.
type SeriesStore interface {
	StoreSeries(ctx context.Context, entityID, source string, points []models.TimeSeriesPoint) error
}

// collectOutcomes runs one cascade per entity on the pool. Every entity gets
// a map entry, empty when nothing produced data.
func collectOutcomes[T any](
	ctx context.Context,
	pool *fetchpool.Pool,
	runID, need string,
	entities []models.Entity,
	run func(ctx context.Context, e models.Entity) cascade.Outcome[T],
) (map[string]T, []models.Degradation) {
	byID := make(map[string]models.Entity, len(entities))
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = e
			ids = append(ids, e.ID)
		}
	}

	results := fetchpool.Collect(ctx, pool, runID, need, ids, func(ctx context.Context, id string) (cascade.Outcome[T], error) {
		out := run(ctx, byID[id])
		if !out.Ok() {
			return out, out.Err
		}
		return out, nil
	})

	values := make(map[string]T, len(ids))
	var degradations []models.Degradation
	for _, id := range ids {
		r := results[id]
		out := r.Value
		values[id] = out.Value
		if out.State == "" {
			// The pool failed before the cascade ran.
			degradations = append(degradations, models.Degradation{
				Need:   need,
				Entity: id,
				Status: models.StatusUnavailable,
				Reason: domain.KindLabel(r.Err),
			})
			continue
		}
		if d := out.Degradation(id); d != nil {
			degradations = append(degradations, *d)
		}
	}
	return values, degradations
}

// SeriesFetcher resolves the series need of many entities.
type SeriesFetcher struct {
	pool    *fetchpool.Pool
	cascade *cascade.Controller
	sources []domrepo.SeriesSource
	store   SeriesStore
	l       *applogger.Logger
}

// NewSeriesFetcher takes sources in cascade order. store may be nil.
func NewSeriesFetcher(pool *fetchpool.Pool, ctl *cascade.Controller, sources []domrepo.SeriesSource, store SeriesStore, l *applogger.Logger) *SeriesFetcher {
	if l == nil {
		l = applogger.Nop()
	}
	return &SeriesFetcher{pool: pool, cascade: ctl, sources: sources, store: store, l: l}
}

// FetchOne runs the series cascade for one entity.
func (f *SeriesFetcher) FetchOne(ctx context.Context, e models.Entity, from, to time.Time) cascade.Outcome[[]models.TimeSeriesPoint] {
	strategies := make([]cascade.Strategy[[]models.TimeSeriesPoint], 0, len(f.sources))
	for _, src := range f.sources {
		src := src
		strategies = append(strategies, cascade.Strategy[[]models.TimeSeriesPoint]{
			Name: src.Name(),
			Fetch: func(ctx context.Context) ([]models.TimeSeriesPoint, error) {
				return src.FetchSeries(ctx, e, from, to)
			},
		})
	}
	out := cascade.Run(ctx, f.cascade, cascade.Need(NeedSeries, e.ID), cascade.SliceEmpty[models.TimeSeriesPoint], strategies...)

	if out.Ok() && f.store != nil && out.Strategy != storeSourceName(f.store) {
		if err := f.store.StoreSeries(ctx, e.ID, out.Strategy, out.Value); err != nil {
			f.l.Warn("store series failed", applogger.String("source", out.Strategy), applogger.Error(err))
		}
	}
	return out
}

// FetchSeries fetches the series of every entity between from and to.
// Entities with no data map to an empty slice.
func (f *SeriesFetcher) FetchSeries(ctx context.Context, runID string, entities []models.Entity, from, to time.Time) (map[string][]models.TimeSeriesPoint, []models.Degradation) {
	return collectOutcomes(ctx, f.pool, runID, NeedSeries, entities, func(ctx context.Context, e models.Entity) cascade.Outcome[[]models.TimeSeriesPoint] {
		return f.FetchOne(ctx, e, from, to)
	})
}

func storeSourceName(s SeriesStore) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}

// FlowFetcher resolves the flow need of many entities.
type FlowFetcher struct {
	pool    *fetchpool.Pool
	cascade *cascade.Controller
	sources []domrepo.FlowSource
}

func NewFlowFetcher(pool *fetchpool.Pool, ctl *cascade.Controller, sources []domrepo.FlowSource) *FlowFetcher {
	return &FlowFetcher{pool: pool, cascade: ctl, sources: sources}
}

func (f *FlowFetcher) FetchOne(ctx context.Context, e models.Entity, from, to time.Time) cascade.Outcome[[]models.InvestorFlowRecord] {
	strategies := make([]cascade.Strategy[[]models.InvestorFlowRecord], 0, len(f.sources))
	for _, src := range f.sources {
		src := src
		strategies = append(strategies, cascade.Strategy[[]models.InvestorFlowRecord]{
			Name: src.Name(),
			Fetch: func(ctx context.Context) ([]models.InvestorFlowRecord, error) {
				return src.FetchFlow(ctx, e, from, to)
			},
		})
	}
	return cascade.Run(ctx, f.cascade, cascade.Need(NeedFlow, e.ID), cascade.SliceEmpty[models.InvestorFlowRecord], strategies...)
}

// FetchFlows fetches investor flow for every entity; failures map to empty.
func (f *FlowFetcher) FetchFlows(ctx context.Context, runID string, entities []models.Entity, from, to time.Time) (map[string][]models.InvestorFlowRecord, []models.Degradation) {
	return collectOutcomes(ctx, f.pool, runID, NeedFlow, entities, func(ctx context.Context, e models.Entity) cascade.Outcome[[]models.InvestorFlowRecord] {
		return f.FetchOne(ctx, e, from, to)
	})
}
