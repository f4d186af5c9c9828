package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/service/calendar"
	"SectorPulse/internal/service/resolver"
	"SectorPulse/internal/services/indicators"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/util"
)

// ScreenerConfig holds screen defaults.
type ScreenerConfig struct {
	MinRatio float64
	Limit    int
	Location *time.Location
	AsOf     time.Time
}

// ScreenerOptions override ScreenerConfig for one run. A nil MinRatio keeps
// the configured threshold.
type ScreenerOptions struct {
	MinRatio *float64
	Limit    int
	AsOf     time.Time
}

// ScreenerService runs the low-valuation screen over a market snapshot.
type ScreenerService struct {
	cfg       ScreenerConfig
	snapshot  *SnapshotFetcher
	resolver  *resolver.Resolver
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

func NewScreenerService(cfg ScreenerConfig, snapshot *SnapshotFetcher, res *resolver.Resolver, publisher domrepo.ReportPublisher, metrics domrepo.Metrics, l *applogger.Logger) *ScreenerService {
	if cfg.Limit <= 0 {
		cfg.Limit = indicators.DefaultLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ScreenerService{
		cfg:       cfg,
		snapshot:  snapshot,
		resolver:  res,
		publisher: publisher,
		metrics:   metrics,
		l:         l.With(applogger.String("component", "screener")),
		now:       time.Now,
	}
}

// Run screens the snapshot. An unavailable snapshot yields a report with
// status unavailable and no rows, not an error.
func (s *ScreenerService) Run(ctx context.Context, opts ScreenerOptions) (*models.ScreenerReport, error) {
	start := s.now()
	minRatio := s.cfg.MinRatio
	if opts.MinRatio != nil {
		minRatio = *opts.MinRatio
	}
	limit := s.cfg.Limit
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.cfg.AsOf
	}
	if asOf.IsZero() {
		asOf = util.DayIn(start, s.cfg.Location)
	}
	asOf = calendar.LastWeekday(asOf)

	runID := uuid.NewString()
	universe := s.resolver.Universe()
	out := s.snapshot.Fetch(ctx, SnapshotRequest{
		RunID:    runID,
		AsOf:     asOf,
		Previous: calendar.PreviousWeekday(asOf),
		Fallback: universe,
	})

	report := &models.ScreenerReport{
		RunID:       runID,
		AsOf:        asOf,
		GeneratedAt: start,
		Status:      out.Status,
		Strategy:    out.Strategy,
		MinRatio:    minRatio,
		Limit:       limit,
		Rows:        []models.ScreenerRow{},
	}
	if d := out.Degradation(""); d != nil {
		report.Degradations = append(report.Degradations, *d)
	}

	if out.Ok() {
		report.Universe = len(out.Value)
		report.Rows = indicators.ScreenLowValuation(out.Value, minRatio, limit)
		for i := range report.Rows {
			if report.Rows[i].Name == "" {
				report.Rows[i].Name = s.resolver.DisplayName(report.Rows[i].EntityID)
			}
		}
	} else {
		s.metrics.RecordError(domain.KindLabel(out.Err))
		s.l.Warn("snapshot unavailable", applogger.String("as_of", util.DateKey(asOf)), applogger.Error(out.Err))
	}

	if err := ctx.Err(); err != nil {
		s.metrics.RecordRun("screener", "cancelled", s.now())
		s.l.Warn("screener run cancelled", applogger.Error(err))
		return nil, fmt.Errorf("screener run %s: %w", runID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishScreenerReport(ctx, report); err != nil {
			s.l.Warn("publish screener failed", applogger.Error(err))
		}
	}
	s.metrics.RecordLatency("screener", s.now().Sub(start).Seconds())
	s.metrics.RecordRun("screener", string(report.Status), s.now())
	s.l.Info("screener ready",
		applogger.String("status", string(report.Status)),
		applogger.String("strategy", report.Strategy),
		applogger.Int("rows", len(report.Rows)))
	return report, nil
}
