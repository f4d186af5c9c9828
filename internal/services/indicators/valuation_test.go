package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

func TestScreenLowValuation(t *testing.T) {
	snap := map[string]models.Fundamentals{
		"A": {ValuationRatio: f(3.2)},
		"B": {ValuationRatio: f(0.5)},
		"C": {ValuationRatio: f(0.51)},
		"D": {ValuationRatio: nil},
		"E": {ValuationRatio: f(3.2)},
		"F": {ValuationRatio: f(-4)},
		"G": {ValuationRatio: f(10)},
	}

	rows := ScreenLowValuation(snap, DefaultMinRatio, 3)

	require.Len(t, rows, 3)
	assert.Equal(t, "C", rows[0].EntityID)
	assert.Equal(t, "A", rows[1].EntityID)
	assert.Equal(t, "E", rows[2].EntityID)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
}

func TestScreenDefaultLimit(t *testing.T) {
	snap := map[string]models.Fundamentals{}
	for i := 0; i < 40; i++ {
		id := string(rune('a'+i%26)) + string(rune('a'+i/26))
		snap[id] = models.Fundamentals{ValuationRatio: f(float64(i) + 1)}
	}
	assert.Len(t, ScreenLowValuation(snap, DefaultMinRatio, 0), DefaultLimit)
}
