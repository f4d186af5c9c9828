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
	"SectorPulse/internal/service/fetchpool"
	"SectorPulse/internal/service/news"
	"SectorPulse/internal/service/resolver"
	"SectorPulse/internal/services/indicators"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/util"
)

// ReportConfig holds the run parameters of a sector report.
type ReportConfig struct {
	LookbackDays        int
	ReferenceCandidates []string
	Windows             []models.ComparisonWindow
	Location            *time.Location
	AsOf                time.Time
	NewsMaxItems        int
	WithSnapshot        bool
}

// ReportOptions override ReportConfig for one run.
type ReportOptions struct {
	Windows []models.ComparisonWindow
	AsOf    time.Time
}

// SectorReportService runs the sector report pipeline.
type SectorReportService struct {
	cfg       ReportConfig
	resolver  *resolver.Resolver
	series    *SeriesFetcher
	flows     *FlowFetcher
	snapshot  *SnapshotFetcher
	news      domrepo.NewsSource
	pool      *fetchpool.Pool
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

// NewSectorReportService wires the pipeline. snapshot and newsSrc may be nil
// to skip those steps.
func NewSectorReportService(
	cfg ReportConfig,
	res *resolver.Resolver,
	series *SeriesFetcher,
	flows *FlowFetcher,
	snapshot *SnapshotFetcher,
	newsSrc domrepo.NewsSource,
	pool *fetchpool.Pool,
	publisher domrepo.ReportPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *SectorReportService {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = calendar.DefaultWindows()
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
	return &SectorReportService{
		cfg:       cfg,
		resolver:  res,
		series:    series,
		flows:     flows,
		snapshot:  snapshot,
		news:      newsSrc,
		pool:      pool,
		publisher: publisher,
		metrics:   metrics,
		l:         l.With(applogger.String("component", "sector_report")),
		now:       time.Now,
	}
}

// Run produces one report. The only error it returns is a calendar failure
// (or ctx ending before the calendar is known); every other failure is
// recorded as a degradation on the report.
func (s *SectorReportService) Run(ctx context.Context, opts ReportOptions) (*models.SectorReport, error) {
	start := s.now()
	runID := uuid.NewString()
	l := s.l.With(applogger.String("run_id", runID))
	defer func() {
		if err := s.pool.Release(context.WithoutCancel(ctx), runID); err != nil {
			l.Debug("release run cache failed", applogger.Error(err))
		}
	}()

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.cfg.AsOf
	}
	if asOf.IsZero() {
		asOf = util.DayIn(start, s.cfg.Location)
	}
	to := util.Day(asOf)
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)

	cal, ref, degradations, err := s.buildCalendar(ctx, runID, asOf, from, to)
	if err != nil {
		s.metrics.RecordRun("report", "failed", s.now())
		s.metrics.RecordError(domain.KindLabel(err))
		l.Error("report run failed", applogger.Error(err))
		return nil, err
	}

	windows := opts.Windows
	if len(windows) == 0 {
		windows = s.cfg.Windows
	}
	resolved, err := calendar.ResolveAll(windows, cal)
	if err != nil {
		return nil, fmt.Errorf("resolve windows: %w", err)
	}

	universe := s.resolver.Universe()
	seriesByID, d := s.series.FetchSeries(ctx, runID, universe, from, to)
	degradations = append(degradations, d...)
	flowsByID, d := s.flows.FetchFlows(ctx, runID, universe, from, to)
	degradations = append(degradations, d...)

	asOfDate, _ := cal.At(0)
	valuations := map[string]models.Fundamentals{}
	if s.snapshot != nil && s.cfg.WithSnapshot {
		prev, _ := cal.At(1)
		out := s.snapshot.Fetch(ctx, SnapshotRequest{RunID: runID, AsOf: asOfDate, Previous: prev, Filter: universe, Fallback: universe})
		if out.Ok() {
			valuations = out.Value
		}
		if dg := out.Degradation(""); dg != nil {
			degradations = append(degradations, *dg)
		}
	}

	report := &models.SectorReport{
		RunID:       runID,
		AsOf:        asOfDate,
		GeneratedAt: start,
		Reference:   ref,
		Calendar:    cal.Dates(),
	}
	for _, w := range resolved {
		report.Windows = append(report.Windows, s.evaluateWindow(w, universe, seriesByID, flowsByID, valuations))
		if w.Degraded {
			degradations = append(degradations, models.Degradation{Need: "window", Entity: w.Name(), Status: models.StatusDegraded, Reason: models.ReasonWindowClamped})
		}
	}
	report.Highlights = ComputeHighlights(report.Windows)

	if s.news != nil {
		report.News = s.collectNews(ctx, runID, asOfDate)
	}
	report.Degradations = degradations

	// A run cut short by its context is discarded whole, not published as degraded.
	if err := ctx.Err(); err != nil {
		s.metrics.RecordRun("report", "cancelled", s.now())
		l.Warn("report run cancelled", applogger.Error(err))
		return nil, fmt.Errorf("report run %s: %w", runID, err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSectorReport(ctx, report); err != nil {
			l.Warn("publish report failed", applogger.Error(err))
		}
	}

	s.metrics.RecordLatency("report", s.now().Sub(start).Seconds())
	s.metrics.RecordRun("report", "success", s.now())
	l.Info("report ready",
		applogger.String("as_of", util.DateKey(asOfDate)),
		applogger.String("reference", ref),
		applogger.Int("entities", len(universe)),
		applogger.Int("degradations", len(degradations)),
		applogger.Duration("duration_ms", s.now().Sub(start)))
	return report, nil
}

// buildCalendar takes the first reference candidate whose series yields a
// non-empty calendar up to asOf.
func (s *SectorReportService) buildCalendar(ctx context.Context, runID string, asOf, from, to time.Time) (models.TradingCalendar, string, []models.Degradation, error) {
	var degradations []models.Degradation
	for _, id := range s.cfg.ReferenceCandidates {
		e := s.resolver.Lookup(id)
		seriesByID, d := s.series.FetchSeries(ctx, runID, []models.Entity{e}, from, to)
		degradations = append(degradations, d...)

		cal, err := calendar.BuildCalendar(seriesByID[e.ID])
		if err != nil {
			s.l.Warn("reference candidate has no series", applogger.String("entity", e.ID))
			continue
		}
		cal = calendar.Until(cal, asOf)
		if cal.Len() == 0 {
			continue
		}
		return cal, e.ID, degradations, nil
	}
	if err := ctx.Err(); err != nil {
		return models.TradingCalendar{}, "", nil, fmt.Errorf("build calendar: %w: %w", domain.ErrCalendarUnavailable, err)
	}
	return models.TradingCalendar{}, "", nil, fmt.Errorf("no reference candidate among %v produced a series: %w", s.cfg.ReferenceCandidates, domain.ErrCalendarUnavailable)
}

func (s *SectorReportService) evaluateWindow(
	w models.ResolvedWindow,
	universe []models.Entity,
	seriesByID map[string][]models.TimeSeriesPoint,
	flowsByID map[string][]models.InvestorFlowRecord,
	valuations map[string]models.Fundamentals,
) models.WindowReport {
	wr := models.WindowReport{Window: w}
	byEntity := make(map[string]models.EntityMetrics, len(universe))
	for _, e := range universe {
		in := indicators.EntityInput{Entity: e, Series: seriesByID[e.ID], Flows: flowsByID[e.ID]}
		if v, ok := valuations[e.ID]; ok {
			v := v
			in.Valuation = &v
		}
		m := indicators.ComputeEntity(w, in)
		if !m.Included {
			s.metrics.RecordExclusion(w.Name(), string(m.ExclusionReason))
		}
		byEntity[e.ID] = m
		wr.Entities = append(wr.Entities, m)
	}
	for _, g := range s.resolver.Groups() {
		wr.Groups = append(wr.Groups, indicators.AggregateGroup(g, w, byEntity))
	}
	return wr
}

// collectNews builds one digest per group; a failed search leaves that
// group's digest empty and unavailable.
func (s *SectorReportService) collectNews(ctx context.Context, runID string, asOf time.Time) []models.NewsDigest {
	groups := s.resolver.Groups()
	ids := make([]string, 0, len(groups))
	byID := make(map[string]models.Group, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
		byID[g.ID] = g
	}

	results := fetchpool.Collect(ctx, s.pool, runID, NeedNews, ids, func(ctx context.Context, id string) ([]models.NewsItem, error) {
		return s.news.Search(ctx, news.Query(byID[id].Name))
	})

	digests := make([]models.NewsDigest, 0, len(ids))
	for _, id := range ids {
		r := results[id]
		if r.Err != nil {
			s.l.Warn("news search failed", applogger.String("kind", domain.KindLabel(r.Err)))
			digests = append(digests, models.NewsDigest{GroupID: id, Status: models.StatusUnavailable, Items: []models.NewsItem{}})
			continue
		}
		items := news.Digest(r.Value, asOf, s.cfg.Location, s.cfg.NewsMaxItems)
		if items == nil {
			items = []models.NewsItem{}
		}
		digests = append(digests, models.NewsDigest{GroupID: id, Status: models.StatusSuccess, Items: items})
	}
	return digests
}

// ComputeHighlights picks the best group of the week window and the
// strongest positive group of the today window, or the weakest group when
// none is positive. Groups without a mean are skipped.
func ComputeHighlights(windows []models.WindowReport) models.Highlights {
	var h models.Highlights
	for _, wr := range windows {
		switch wr.Window.Name() {
		case calendar.Week.Name:
			if best := pick(wr, func(a, b float64) bool { return a > b }); best != nil {
				h.BestWeek = best
			}
		case calendar.Today.Name:
			best := pick(wr, func(a, b float64) bool { return a > b })
			if best != nil && best.ChangePct > 0 {
				h.TodayLeader = best
				h.TodayLeaderPositive = true
			} else {
				h.TodayLeader = pick(wr, func(a, b float64) bool { return a < b })
			}
		}
	}
	return h
}

func pick(wr models.WindowReport, better func(a, b float64) bool) *models.GroupHighlight {
	var out *models.GroupHighlight
	for _, g := range wr.Groups {
		if g.MeanPriceChangePct == nil {
			continue
		}
		v := *g.MeanPriceChangePct
		if out == nil || better(v, out.ChangePct) {
			out = &models.GroupHighlight{GroupID: g.GroupID, GroupName: g.GroupName, Window: wr.Window.Name(), ChangePct: v}
		}
	}
	return out
}
