package repository

import (
	"context"
	"time"

	"SectorPulse/internal/domain/models"
)

// SeriesSource returns daily bars for one entity, oldest first. An empty
// slice with a nil error means the source had nothing for the range.
type SeriesSource interface {
	Name() string
	FetchSeries(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.TimeSeriesPoint, error)
}

// FlowSource returns investor flow records for one entity, oldest first.
type FlowSource interface {
	Name() string
	FetchFlow(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.InvestorFlowRecord, error)
}

// SnapshotSource returns a cross-sectional fundamentals snapshot keyed by
// canonical entity id. universe narrows the request when the source supports
// it; nil asks for the whole market.
type SnapshotSource interface {
	Name() string
	FetchSnapshot(ctx context.Context, asof time.Time, universe []models.Entity) (map[string]models.Fundamentals, error)
}

// FundamentalsSource returns fundamentals for a single entity.
type FundamentalsSource interface {
	Name() string
	FetchFundamentals(ctx context.Context, entity models.Entity, asof time.Time) (models.Fundamentals, error)
}

// NewsSource returns headlines for a free-text query.
type NewsSource interface {
	Search(ctx context.Context, query string) ([]models.NewsItem, error)
}

// ReportPublisher ships finished reports to an external sink.
type ReportPublisher interface {
	PublishSectorReport(ctx context.Context, r *models.SectorReport) error
	PublishScreenerReport(ctx context.Context, r *models.ScreenerReport) error
	Close() error
}

// Metrics records pipeline telemetry.
type Metrics interface {
	RecordFetch(source, need, result string)
	RecordCascade(need, status, strategy string)
	RecordExclusion(window, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRun(kind, status string, at time.Time)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(string, string, string) {}
func (NopMetrics) RecordCascade(string, string, string) {}
func (NopMetrics) RecordExclusion(string, string) {}
func (NopMetrics) RecordError(string) {}
func (NopMetrics) RecordLatency(string, float64) {}
func (NopMetrics) RecordRun(string, string, time.Time) {}
