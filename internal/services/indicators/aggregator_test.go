package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/calendar"
)

func f(v float64) *float64 { return &v }

func TestAggregateScenarioABC(t *testing.T) {
	today := resolve(t, calendar.Today)
	g := models.Group{ID: "g", Name: "Group", Members: []string{"A", "B", "C"}}

	byEntity := map[string]models.EntityMetrics{}
	inputs := []EntityInput{
		{Entity: models.Entity{ID: "A"}, Series: []models.TimeSeriesPoint{bar(15, 100, 10), bar(16, 110, 30)}},
		{Entity: models.Entity{ID: "B"}, Series: []models.TimeSeriesPoint{bar(15, 0, 10), bar(16, 5, 20)}},
		{Entity: models.Entity{ID: "C"}},
	}
	for _, in := range inputs {
		byEntity[in.Entity.ID] = ComputeEntity(today, in)
	}

	gm := AggregateGroup(g, today, byEntity)

	require.NotNil(t, gm.MeanPriceChangePct)
	assert.Equal(t, 10.0, *gm.MeanPriceChangePct)
	assert.Equal(t, 1, gm.IncludedCount)
	assert.Equal(t, models.Breadth{Up: 1}, gm.Breadth)
	assert.Equal(t, []string{"B", "C"}, gm.Excluded)
	assert.Equal(t, int64(50), gm.VolumeTotal)
	assert.False(t, gm.Degraded)
	require.NotNil(t, gm.Representative)
	assert.Equal(t, "A", gm.Representative.EntityID)
}

func TestAggregateMeanOverIncludedOnly(t *testing.T) {
	w := resolve(t, calendar.Today)
	g := models.Group{ID: "g", Members: []string{"R", "A", "B", "C"}}
	byEntity := map[string]models.EntityMetrics{
		"R": {EntityID: "R", ExclusionReason: models.ExclusionMissingBaseline},
		"A": {EntityID: "A", Included: true, PriceChangePct: f(2)},
		"B": {EntityID: "B", Included: true, PriceChangePct: f(-1)},
		"C": {EntityID: "C", Included: true, PriceChangePct: f(0)},
	}

	gm := AggregateGroup(g, w, byEntity)

	require.NotNil(t, gm.MeanPriceChangePct)
	assert.Equal(t, 0.33, *gm.MeanPriceChangePct)
	assert.Equal(t, models.Breadth{Up: 1, Down: 1, Flat: 1}, gm.Breadth)
	require.NotNil(t, gm.Representative)
	assert.Equal(t, "R", gm.Representative.EntityID, "representative is surfaced even when excluded")
}

func TestAggregateMeanUsesUnroundedChanges(t *testing.T) {
	w := resolve(t, calendar.Today)
	g := models.Group{ID: "g", Members: []string{"A", "B"}}
	up := ComputeEntity(w, EntityInput{Entity: models.Entity{ID: "A"}, Series: []models.TimeSeriesPoint{bar(15, 100, 1), bar(16, 100.006, 1)}})
	require.NotNil(t, up.PriceChangePct)
	assert.Equal(t, 0.01, *up.PriceChangePct)
	require.NotNil(t, up.PriceChangeRaw)
	assert.InDelta(t, 0.006, *up.PriceChangeRaw, 1e-9)

	byEntity := map[string]models.EntityMetrics{
		"A": up,
		"B": {EntityID: "B", Included: true, PriceChangePct: f(0), PriceChangeRaw: f(-0.004)},
	}
	gm := AggregateGroup(g, w, byEntity)

	// Rounded members would average to 0.005 and round up to 0.01.
	require.NotNil(t, gm.MeanPriceChangePct)
	assert.Equal(t, 0.0, *gm.MeanPriceChangePct)
}

func TestAggregateNoIncludedIsDegraded(t *testing.T) {
	w := resolve(t, calendar.Today)
	g := models.Group{ID: "g", Members: []string{"A", "B"}}

	gm := AggregateGroup(g, w, map[string]models.EntityMetrics{})

	assert.Nil(t, gm.MeanPriceChangePct)
	assert.True(t, gm.Degraded)
	assert.Contains(t, gm.DegradedReasons, models.ReasonNoIncludedEntities)
	assert.Contains(t, gm.DegradedReasons, models.ReasonMembersUnavailable)
	assert.Nil(t, gm.Representative)
}

func TestAggregateFlowsAndVolumeChange(t *testing.T) {
	w := resolve(t, calendar.Today)
	g := models.Group{ID: "g", Members: []string{"A", "B"}}
	byEntity := map[string]models.EntityMetrics{
		"A": {
			EntityID: "A", Included: true, PriceChangePct: f(1),
			HasVolume: true, VolumeTotal: 100, VolumeCurrentMean: f(100), VolumeBaselineMean: f(50),
			HasFlow: true, Flow: models.FlowSums{Institution: 10, Foreign: -20, Retail: 10, Total: 100},
		},
		"B": {
			EntityID: "B", Included: true, PriceChangePct: f(3),
			HasVolume: true, VolumeTotal: 300, VolumeCurrentMean: f(300), VolumeBaselineMean: f(150),
			HasFlow: true, RetailInferred: true, Flow: models.FlowSums{Institution: 30, Foreign: 0, Retail: -30, Total: 300},
		},
	}

	gm := AggregateGroup(g, w, byEntity)

	assert.Equal(t, int64(400), gm.VolumeTotal)
	require.NotNil(t, gm.VolumeChangePct)
	assert.Equal(t, 100.0, *gm.VolumeChangePct)
	assert.Equal(t, models.FlowSums{Institution: 40, Foreign: -20, Retail: -20, Total: 400}, gm.Flow)
	assert.Equal(t, models.FlowPct{Institution: 10, Foreign: -5, Retail: -5}, gm.FlowPct)
	assert.True(t, gm.RetailInferred)
}

func TestAggregatePropagatesClampedWindow(t *testing.T) {
	w := resolve(t, calendar.Today)
	w.Degraded = true
	g := models.Group{ID: "g", Members: []string{"A"}}

	gm := AggregateGroup(g, w, map[string]models.EntityMetrics{"A": {EntityID: "A", Included: true, PriceChangePct: f(1)}})

	assert.True(t, gm.Degraded)
	assert.Equal(t, []string{models.ReasonWindowClamped}, gm.DegradedReasons)
}
