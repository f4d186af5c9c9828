package news

import (
	"strings"
	"time"

	"SectorPulse/internal/domain/models"
	"SectorPulse/pkg/util"
)

const (
	// DefaultMaxItems is how many headlines a digest keeps.
	DefaultMaxItems = 3
	// scanLimit caps how many same-day items are considered for a digest.
	scanLimit = 15
	// similarityThreshold is the shared-word ratio above which two titles
	// count as the same story.
	similarityThreshold = 0.5
)

// Query is the search text used for a group.
func Query(groupName string) string {
	return groupName + " 주식 뉴스"
}

// Digest keeps items published on asOf's date in loc, drops near-duplicate
// titles and returns at most limit items in feed order.
func Digest(items []models.NewsItem, asOf time.Time, loc *time.Location, limit int) []models.NewsItem {
	if limit <= 0 {
		limit = DefaultMaxItems
	}
	day := util.DayIn(asOf, loc)

	var sameDay []models.NewsItem
	for _, it := range items {
		if util.DayIn(it.Published, loc).Equal(day) {
			sameDay = append(sameDay, it)
			if len(sameDay) >= scanLimit {
				break
			}
		}
	}

	var kept []models.NewsItem
	var seen []map[string]struct{}
	for _, it := range sameDay {
		words := wordSet(it.Title)
		dup := false
		for _, prev := range seen {
			if Similarity(words, prev) > similarityThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, it)
		seen = append(seen, words)
		if len(kept) >= limit {
			break
		}
	}
	return kept
}

func wordSet(title string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(title) {
		out[w] = struct{}{}
	}
	return out
}

// Similarity is |a ∩ b| / min(|a|, |b|), with the denominator floored at 1.
func Similarity(a, b map[string]struct{}) float64 {
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	denom := len(a)
	if len(b) < denom {
		denom = len(b)
	}
	if denom < 1 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}
