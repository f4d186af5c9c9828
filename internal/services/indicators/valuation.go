package indicators

import (
	"sort"

	"SectorPulse/internal/domain/models"
)

// Screen defaults.
const (
	DefaultMinRatio = 0.5
	DefaultLimit    = 30
)

// ScreenLowValuation keeps entities whose valuation ratio is above minRatio,
// sorts them ascending (ties by id) and returns at most limit rows.
func ScreenLowValuation(snapshot map[string]models.Fundamentals, minRatio float64, limit int) []models.ScreenerRow {
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := make([]models.Fundamentals, 0, len(snapshot))
	for id, f := range snapshot {
		if f.ValuationRatio == nil || *f.ValuationRatio <= minRatio {
			continue
		}
		if f.EntityID == "" {
			f.EntityID = id
		}
		candidates = append(candidates, f)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := *candidates[i].ValuationRatio, *candidates[j].ValuationRatio
		if a != b {
			return a < b
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	rows := make([]models.ScreenerRow, len(candidates))
	for i, f := range candidates {
		rows[i] = models.ScreenerRow{Rank: i + 1, Fundamentals: f}
	}
	return rows
}
