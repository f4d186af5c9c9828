package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	cascades    *prometheus.CounterVec
	exclusions  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	lastRun     *prometheus.GaugeVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_source_fetches_total",
				Help: "Source adapter calls by source, data need and result",
			},
			[]string{"source", "need", "result"},
		),
		cascades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_cascade_outcomes_total",
				Help: "Fallback cascade outcomes by data need, status and producing strategy",
			},
			[]string{"need", "status", "strategy"},
		),
		exclusions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_entity_exclusions_total",
				Help: "Entities excluded from a group mean by window and reason",
			},
			[]string{"window", "reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastRun: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sectorpulse_last_run_timestamp_seconds",
				Help: "Unix time of the last pipeline run by kind and status",
			},
			[]string{"kind", "status"},
		),
	}
}

// RecordFetch records one adapter call.
func (r *Recorder) RecordFetch(source, need, result string) {
	r.fetches.WithLabelValues(source, need, result).Inc()
}

// RecordCascade records the final outcome of one cascade.
func (r *Recorder) RecordCascade(need, status, strategy string) {
	r.cascades.WithLabelValues(need, status, strategy).Inc()
}

// RecordExclusion records an entity left out of a group mean.
func (r *Recorder) RecordExclusion(window, reason string) {
	r.exclusions.WithLabelValues(window, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordRun stamps the completion time of a run.
func (r *Recorder) RecordRun(kind, status string, at time.Time) {
	r.lastRun.WithLabelValues(kind, status).Set(float64(at.Unix()))
}
