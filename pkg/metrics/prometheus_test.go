package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordFetch("yahoo", "series", "ok")
	r.RecordFetch("yahoo", "series", "ok")
	r.RecordFetch("naver", "flow", "error")
	r.RecordCascade("series", "degraded", "krx")
	r.RecordExclusion("today", "missing_baseline")
	r.RecordError("source_unavailable")
	r.RecordLatency("report", 0.25)
	r.RecordRun("report", "ok", time.Unix(1_790_000_000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("yahoo", "series", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("naver", "flow", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cascades.WithLabelValues("series", "degraded", "krx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exclusions.WithLabelValues("today", "missing_baseline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("source_unavailable")))
	assert.Equal(t, 1_790_000_000.0, testutil.ToFloat64(r.lastRun.WithLabelValues("report", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersOnSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
