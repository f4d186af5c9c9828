package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/domain/repository"
	"SectorPulse/pkg/logger"
)

type recordingMetrics struct {
	repository.NopMetrics
	mu       sync.Mutex
	cascades []string
	fetches  []string
}

func (m *recordingMetrics) RecordCascade(need, status, strategy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascades = append(m.cascades, need+":"+status+":"+strategy)
}

func (m *recordingMetrics) RecordFetch(source, need, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches = append(m.fetches, source+":"+need+":"+result)
}

type countingStrategy struct {
	name   string
	result []int
	err    error
	calls  int
}

func (s *countingStrategy) strategy() Strategy[[]int] {
	return Strategy[[]int]{Name: s.name, Fetch: func(context.Context) ([]int, error) {
		s.calls++
		return s.result, s.err
	}}
}

func TestPrimarySucceeds(t *testing.T) {
	m := &recordingMetrics{}
	c := NewController(logger.Nop(), m)
	primary := &countingStrategy{name: "yahoo", result: []int{1}}
	secondary := &countingStrategy{name: "krx", result: []int{2}}

	out := Run(context.Background(), c, Need("series", "005930"), SliceEmpty[int], primary.strategy(), secondary.strategy())

	assert.True(t, out.Ok())
	assert.Equal(t, models.StatusSuccess, out.Status)
	assert.Equal(t, "yahoo", out.Strategy)
	assert.Equal(t, []int{1}, out.Value)
	assert.Equal(t, 0, secondary.calls)
	assert.Nil(t, out.Degradation("005930"))
	assert.Equal(t, []string{"series:success:yahoo"}, m.cascades)
}

func TestPrimaryEmptyFallsBackOnce(t *testing.T) {
	c := NewController(logger.Nop(), nil)
	primary := &countingStrategy{name: "yahoo", result: nil}
	secondary := &countingStrategy{name: "krx", result: []int{7}}
	tertiary := &countingStrategy{name: "warehouse", result: []int{9}}

	out := Run(context.Background(), c, "series/A", SliceEmpty[int], primary.strategy(), secondary.strategy(), tertiary.strategy())

	require.True(t, out.Ok())
	assert.Equal(t, models.StatusDegraded, out.Status)
	assert.Equal(t, "krx", out.Strategy)
	assert.Equal(t, Succeeded, out.State)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Equal(t, 0, tertiary.calls)

	require.Len(t, out.Attempts, 2)
	assert.Equal(t, TrialPrimary, out.Attempts[0].State)
	assert.Equal(t, "data_missing", out.Attempts[0].ErrorKind)
	assert.Equal(t, TrialSecondary, out.Attempts[1].State)
	assert.Equal(t, "none", out.Attempts[1].ErrorKind)

	d := out.Degradation("A")
	require.NotNil(t, d)
	assert.Equal(t, "series", d.Need)
	assert.Equal(t, models.StatusDegraded, d.Status)
	assert.Equal(t, "krx", d.Strategy)
}

func TestAllFailIsUnavailable(t *testing.T) {
	m := &recordingMetrics{}
	c := NewController(logger.Nop(), m)
	parseErr := domain.NewSourceError("naver", "flow", "A", domain.ErrParseFailure, nil)
	first := &countingStrategy{name: "naver", err: parseErr}
	second := &countingStrategy{name: "krx", err: errors.New("connection refused")}

	out := Run(context.Background(), c, "flow/A", SliceEmpty[int], first.strategy(), second.strategy())

	assert.False(t, out.Ok())
	assert.Equal(t, Exhausted, out.State)
	assert.Equal(t, models.StatusUnavailable, out.Status)
	assert.Nil(t, out.Value)
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, "parse_failure", out.Attempts[0].ErrorKind)
	assert.Equal(t, "source_unavailable", out.Attempts[1].ErrorKind)
	assert.Equal(t, TrialSecondary, out.Attempts[1].State)
	assert.Equal(t, domain.ErrSourceUnavailable, domain.KindOf(out.Err))
	assert.Equal(t, []string{"flow:unavailable:"}, m.cascades)
	assert.Equal(t, []string{"naver:flow:parse_failure", "krx:flow:source_unavailable"}, m.fetches)

	d := out.Degradation("A")
	require.NotNil(t, d)
	assert.Equal(t, "source_unavailable", d.Reason)
}

func TestOneNeedFailingDoesNotAffectAnother(t *testing.T) {
	c := NewController(logger.Nop(), nil)
	failing := &countingStrategy{name: "naver", err: domain.ErrSourceUnavailable}
	ok := &countingStrategy{name: "naver", result: []int{1}}

	a := Run(context.Background(), c, "flow/A", SliceEmpty[int], failing.strategy())
	b := Run(context.Background(), c, "flow/B", SliceEmpty[int], ok.strategy())

	assert.Equal(t, models.StatusUnavailable, a.Status)
	assert.Equal(t, models.StatusSuccess, b.Status)
}

func TestThirdStrategyIsTertiary(t *testing.T) {
	c := NewController(nil, nil)
	empty := func(context.Context) (map[string]int, error) { return map[string]int{}, nil }
	full := func(context.Context) (map[string]int, error) { return map[string]int{"A": 1}, nil }

	out := Run(context.Background(), c, "snapshot/20261016", MapEmpty[string, int],
		Strategy[map[string]int]{Name: "krx_bulk", Fetch: empty},
		Strategy[map[string]int]{Name: "krx_bulk_previous", Fetch: empty},
		Strategy[map[string]int]{Name: "per_entity", Fetch: full},
	)

	require.True(t, out.Ok())
	assert.Equal(t, models.StatusDegraded, out.Status)
	assert.Equal(t, TrialTertiary, out.Attempts[2].State)
	assert.Equal(t, "per_entity", out.Strategy)
}

func TestCancelledContextStopsImmediately(t *testing.T) {
	c := NewController(logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &countingStrategy{name: "yahoo", result: []int{1}}

	out := Run(ctx, c, "series/A", SliceEmpty[int], s.strategy())

	assert.Equal(t, models.StatusUnavailable, out.Status)
	assert.Equal(t, 0, s.calls)
	assert.Empty(t, out.Attempts)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestCancellationDuringAttemptStopsCascade(t *testing.T) {
	c := NewController(logger.Nop(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	slow := Strategy[[]int]{Name: "yahoo", Fetch: func(ctx context.Context) ([]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	next := &countingStrategy{name: "krx", result: []int{1}}

	out := Run(ctx, c, "series/A", SliceEmpty[int], slow, next.strategy())

	assert.Equal(t, models.StatusUnavailable, out.Status)
	assert.Equal(t, 0, next.calls)
	assert.Len(t, out.Attempts, 1)
}

func TestNeedKind(t *testing.T) {
	assert.Equal(t, "series", NeedKind("series/005930"))
	assert.Equal(t, "news", NeedKind("news"))
}
