package indicators

import (
	"github.com/shopspring/decimal"

	"SectorPulse/internal/domain/models"
)

// AggregateGroup folds member metrics (keyed by entity id) into the group's
// summary for one window. Members without metrics count as excluded.
func AggregateGroup(g models.Group, w models.ResolvedWindow, byEntity map[string]models.EntityMetrics) models.GroupMetrics {
	gm := models.GroupMetrics{
		GroupID:   g.ID,
		GroupName: g.Name,
		Window:    w.Name(),
	}

	sum := decimal.Zero
	var volCur, volBase float64
	volPairs := 0
	var volumeSeen, flowSeen bool
	missing := 0

	for _, id := range g.Members {
		m, ok := byEntity[id]
		if !ok {
			gm.Excluded = append(gm.Excluded, id)
			missing++
			continue
		}

		if m.Included && m.PriceChangePct != nil {
			v := *m.PriceChangePct
			if m.PriceChangeRaw != nil {
				sum = sum.Add(decimal.NewFromFloat(*m.PriceChangeRaw))
			} else {
				sum = sum.Add(decimal.NewFromFloat(v))
			}
			gm.IncludedCount++
			switch {
			case v > 0:
				gm.Breadth.Up++
			case v < 0:
				gm.Breadth.Down++
			default:
				gm.Breadth.Flat++
			}
		} else {
			gm.Excluded = append(gm.Excluded, id)
		}

		if m.HasVolume {
			gm.VolumeTotal += m.VolumeTotal
			volumeSeen = true
		}
		if m.VolumeCurrentMean != nil && m.VolumeBaselineMean != nil {
			volCur += *m.VolumeCurrentMean
			volBase += *m.VolumeBaselineMean
			volPairs++
		}
		if m.HasFlow {
			gm.Flow = gm.Flow.Add(m.Flow)
			gm.RetailInferred = gm.RetailInferred || m.RetailInferred
			flowSeen = true
		}
	}

	if gm.IncludedCount > 0 {
		mean := sum.Div(decimal.NewFromInt(int64(gm.IncludedCount))).Round(2).InexactFloat64()
		gm.MeanPriceChangePct = &mean
	} else {
		gm.Degraded = true
		gm.DegradedReasons = append(gm.DegradedReasons, models.ReasonNoIncludedEntities)
	}

	if volPairs > 0 {
		gm.VolumeChangePct = ChangePct(volCur, volBase)
	}
	if flowSeen {
		denominator := gm.Flow.Total
		if denominator <= 0 && volumeSeen {
			denominator = gm.VolumeTotal
		}
		gm.FlowPct = FlowPercent(gm.Flow, denominator)
	}

	if rep := g.Representative(); rep != "" {
		if m, ok := byEntity[rep]; ok {
			r := m
			gm.Representative = &r
		}
	}

	if w.Degraded {
		gm.Degraded = true
		gm.DegradedReasons = append(gm.DegradedReasons, models.ReasonWindowClamped)
	}
	if missing > 0 && missing == len(g.Members) {
		gm.DegradedReasons = append(gm.DegradedReasons, models.ReasonMembersUnavailable)
	}

	return gm
}
