package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	domrepo "SectorPulse/internal/domain/repository"
	"SectorPulse/internal/service/resolver"
	applogger "SectorPulse/pkg/logger"
)

func newScreener(t *testing.T, bulk domrepo.SnapshotSource, per []domrepo.FundamentalsSource, pub *fakePublisher) *ScreenerService {
	t.Helper()
	res, err := resolver.New([]models.Group{
		{ID: "g", Name: "All", Members: []string{"A", "B", "C"}},
	}, []models.Entity{{ID: "A", Name: "Alpha"}, {ID: "B", Name: "Beta"}})
	require.NoError(t, err)

	pool := newPool()
	fetcher := NewSnapshotFetcher(pool, newController(), bulk, per, 0)
	var publisher domrepo.ReportPublisher
	if pub != nil {
		publisher = pub
	}
	return NewScreenerService(ScreenerConfig{MinRatio: 0.5, Limit: 30, Location: time.UTC}, fetcher, res, publisher, nil, applogger.Nop())
}

func TestScreenerBulkSnapshot(t *testing.T) {
	bulk := &fakeSnapshot{byDate: map[string]map[string]models.Fundamentals{
		"20261016": {
			"A": {ValuationRatio: ratio(8)},
			"B": {ValuationRatio: ratio(0.3)},
			"C": {ValuationRatio: ratio(4), Name: "Gamma"},
			"D": {ValuationRatio: nil},
		},
	}}
	pub := &fakePublisher{}
	svc := newScreener(t, bulk, nil, pub)

	// Saturday rolls back to Friday.
	rep, err := svc.Run(context.Background(), ScreenerOptions{AsOf: oct(17)})
	require.NoError(t, err)

	assert.Equal(t, oct(16), rep.AsOf)
	assert.Equal(t, models.StatusSuccess, rep.Status)
	assert.Equal(t, "krx_bulk", rep.Strategy)
	assert.Equal(t, 4, rep.Universe)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "C", rep.Rows[0].EntityID)
	assert.Equal(t, "Gamma", rep.Rows[0].Name)
	assert.Equal(t, 1, rep.Rows[0].Rank)
	assert.Equal(t, "A", rep.Rows[1].EntityID)
	assert.Equal(t, "Alpha", rep.Rows[1].Name, "missing names come from the universe")
	assert.Empty(t, rep.Degradations)
	require.Len(t, pub.screener, 1)
}

func TestScreenerOptionsOverride(t *testing.T) {
	bulk := &fakeSnapshot{byDate: map[string]map[string]models.Fundamentals{
		"20261016": {
			"A": {ValuationRatio: ratio(8)},
			"B": {ValuationRatio: ratio(0.3)},
			"C": {ValuationRatio: ratio(4)},
		},
	}}
	svc := newScreener(t, bulk, nil, nil)

	rep, err := svc.Run(context.Background(), ScreenerOptions{AsOf: oct(16), MinRatio: ratio(0), Limit: 2})
	require.NoError(t, err)

	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "B", rep.Rows[0].EntityID)
	assert.Equal(t, "C", rep.Rows[1].EntityID)
	assert.Equal(t, 0.0, rep.MinRatio)
	assert.Equal(t, 2, rep.Limit)
}

func TestScreenerFallsBackToPreviousDate(t *testing.T) {
	bulk := &fakeSnapshot{byDate: map[string]map[string]models.Fundamentals{
		"20261015": {"A": {ValuationRatio: ratio(8)}},
	}}
	svc := newScreener(t, bulk, nil, nil)

	rep, err := svc.Run(context.Background(), ScreenerOptions{AsOf: oct(16)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDegraded, rep.Status)
	assert.Equal(t, "krx_bulk_previous", rep.Strategy)
	require.Len(t, rep.Rows, 1)
	require.Len(t, rep.Degradations, 1)
	assert.Equal(t, NeedSnapshot, rep.Degradations[0].Need)
}

func TestScreenerFallsBackToPerEntity(t *testing.T) {
	bulk := &fakeSnapshot{err: domain.ErrSourceUnavailable}
	naver := &fakeFundamentals{name: "naver", data: map[string]models.Fundamentals{
		"A": {ValuationRatio: ratio(12)},
		"C": {ValuationRatio: ratio(6)},
	}}
	svc := newScreener(t, bulk, []domrepo.FundamentalsSource{naver}, nil)

	rep, err := svc.Run(context.Background(), ScreenerOptions{AsOf: oct(16)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusDegraded, rep.Status)
	assert.Equal(t, "per_entity", rep.Strategy)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "C", rep.Rows[0].EntityID)
	assert.Equal(t, "A", rep.Rows[1].EntityID)
	assert.Equal(t, "Alpha", rep.Rows[1].Name)
}

func TestScreenerUnavailableIsNotAnError(t *testing.T) {
	bulk := &fakeSnapshot{err: domain.ErrSourceUnavailable}
	naver := &fakeFundamentals{name: "naver"}
	pub := &fakePublisher{}
	svc := newScreener(t, bulk, []domrepo.FundamentalsSource{naver}, pub)

	rep, err := svc.Run(context.Background(), ScreenerOptions{AsOf: oct(16)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnavailable, rep.Status)
	assert.NotNil(t, rep.Rows)
	assert.Empty(t, rep.Rows)
	require.Len(t, rep.Degradations, 1)
	assert.Equal(t, models.StatusUnavailable, rep.Degradations[0].Status)
	require.Len(t, pub.screener, 1, "unavailable reports are still published")
}

func TestScreenerCancelledRunIsNotPublished(t *testing.T) {
	bulk := &fakeSnapshot{byDate: map[string]map[string]models.Fundamentals{
		"20261016": {"A": {ValuationRatio: ratio(8)}},
	}}
	pub := &fakePublisher{}
	svc := newScreener(t, bulk, nil, pub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := svc.Run(ctx, ScreenerOptions{AsOf: oct(16)})

	assert.Nil(t, rep)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, pub.screener)
}
