package usecase

import (
	"context"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/service/cascade"
	"SectorPulse/internal/service/fetchpool"
	"SectorPulse/pkg/util"
)

// SnapshotRequest describes one snapshot need.
type SnapshotRequest struct {
	RunID string
	AsOf  time.Time
	// Previous is the trading date before AsOf; zero skips the stale-bulk step.
	Previous time.Time
	// Filter narrows bulk results to these entities; nil keeps the whole market.
	Filter []models.Entity
	// Fallback is the ordered universe the per-entity step reads from.
	Fallback []models.Entity
}

// SnapshotFetcher resolves a fundamentals snapshot: bulk at the as-of date,
// then bulk at the previous date, then per-entity reads for the first N
// entities of the fallback universe.
type SnapshotFetcher struct {
	pool      *fetchpool.Pool
	cascade   *cascade.Controller
	bulk      domrepo.SnapshotSource
	perEntity []domrepo.FundamentalsSource
	topN      int
}

func NewSnapshotFetcher(pool *fetchpool.Pool, ctl *cascade.Controller, bulk domrepo.SnapshotSource, perEntity []domrepo.FundamentalsSource, topN int) *SnapshotFetcher {
	if topN <= 0 {
		topN = 50
	}
	return &SnapshotFetcher{pool: pool, cascade: ctl, bulk: bulk, perEntity: perEntity, topN: topN}
}

func (f *SnapshotFetcher) Fetch(ctx context.Context, req SnapshotRequest) cascade.Outcome[map[string]models.Fundamentals] {
	type snap = map[string]models.Fundamentals
	var strategies []cascade.Strategy[snap]

	if f.bulk != nil {
		strategies = append(strategies, cascade.Strategy[snap]{
			Name: f.bulk.Name() + "_bulk",
			Fetch: func(ctx context.Context) (snap, error) {
				return f.bulk.FetchSnapshot(ctx, req.AsOf, req.Filter)
			},
		})
		if !req.Previous.IsZero() {
			strategies = append(strategies, cascade.Strategy[snap]{
				Name: f.bulk.Name() + "_bulk_previous",
				Fetch: func(ctx context.Context) (snap, error) {
					return f.bulk.FetchSnapshot(ctx, req.Previous, req.Filter)
				},
			})
		}
	}
	if len(f.perEntity) > 0 && len(req.Fallback) > 0 {
		strategies = append(strategies, cascade.Strategy[snap]{
			Name: "per_entity",
			Fetch: func(ctx context.Context) (snap, error) {
				return f.fetchPerEntity(ctx, req)
			},
		})
	}

	return cascade.Run(ctx, f.cascade, cascade.Need(NeedSnapshot, util.DateKey(req.AsOf)), cascade.MapEmpty[string, models.Fundamentals], strategies...)
}

// fetchPerEntity reads each of the first topN entities through the
// per-entity sources in order. Entities that fail everywhere are left out.
func (f *SnapshotFetcher) fetchPerEntity(ctx context.Context, req SnapshotRequest) (map[string]models.Fundamentals, error) {
	subset := req.Fallback
	if len(subset) > f.topN {
		subset = subset[:f.topN]
	}
	byID := make(map[string]models.Entity, len(subset))
	ids := make([]string, 0, len(subset))
	for _, e := range subset {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	results := fetchpool.Collect(ctx, f.pool, req.RunID, NeedSnapshot+"_entity", ids, func(ctx context.Context, id string) (models.Fundamentals, error) {
		e := byID[id]
		var lastErr error = domain.ErrDataMissing
		for _, src := range f.perEntity {
			fv, err := src.FetchFundamentals(ctx, e, req.AsOf)
			if err == nil && hasAnyRatio(fv) {
				fv.EntityID = e.ID
				if fv.Name == "" {
					fv.Name = e.Name
				}
				return fv, nil
			}
			if err != nil {
				lastErr = err
			}
		}
		return models.Fundamentals{}, lastErr
	})

	out := make(map[string]models.Fundamentals, len(results))
	for id, r := range results {
		if r.Err == nil {
			out[id] = r.Value
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func hasAnyRatio(f models.Fundamentals) bool {
	return f.ValuationRatio != nil || f.BookRatio != nil || f.Yield != nil || f.EarningsPerUnit != nil || f.BookPerUnit != nil
}
