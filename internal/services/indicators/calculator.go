// Package indicators computes per-entity window metrics, folds them into
// group metrics and screens valuation snapshots. Everything here is pure.
package indicators

import (
	"time"

	"github.com/shopspring/decimal"

	"SectorPulse/internal/domain/models"
	"SectorPulse/pkg/util"
)

// EntityInput is everything known about one entity for a run.
type EntityInput struct {
	Entity    models.Entity
	Series    []models.TimeSeriesPoint
	Flows     []models.InvestorFlowRecord
	Valuation *models.Fundamentals
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func ptr(v float64) *float64 { return &v }

func indexSeries(series []models.TimeSeriesPoint) map[string]models.TimeSeriesPoint {
	idx := make(map[string]models.TimeSeriesPoint, len(series))
	for _, p := range series {
		idx[util.DateKey(util.Day(p.Date))] = p
	}
	return idx
}

// PriceChange returns the unrounded percent change from baseline close to
// current close, or the reason the entity cannot be included.
func PriceChange(idx map[string]models.TimeSeriesPoint, current, baseline time.Time) (*float64, models.ExclusionReason) {
	if len(idx) == 0 {
		return nil, models.ExclusionNoSeries
	}
	cur, ok := idx[util.DateKey(current)]
	if !ok {
		return nil, models.ExclusionMissingCurrent
	}
	base, ok := idx[util.DateKey(baseline)]
	if !ok {
		return nil, models.ExclusionMissingBaseline
	}
	if base.Close <= 0 {
		return nil, models.ExclusionNonPositiveBaseline
	}
	return ptr((cur.Close - base.Close) / base.Close * 100), models.ExclusionNone
}

// volumeOver sums volume over the given calendar dates. n counts dates the
// series has a usable volume for.
func volumeOver(idx map[string]models.TimeSeriesPoint, dates []time.Time) (sum int64, n int) {
	for _, d := range dates {
		if p, ok := idx[util.DateKey(d)]; ok && !p.VolumeMissing {
			sum += p.Volume
			n++
		}
	}
	return sum, n
}

// FlowOver sums records whose own date lies in [from, to].
func FlowOver(records []models.InvestorFlowRecord, from, to time.Time) (sums models.FlowSums, n int, inferred bool) {
	for _, r := range records {
		if !util.WithinDays(r.Date, from, to) {
			continue
		}
		sums.Institution += r.Institution
		sums.Foreign += r.Foreign
		sums.Retail += r.Retail
		sums.Total += r.TotalVolume
		inferred = inferred || r.RetailInferred
		n++
	}
	return sums, n, inferred
}

// FlowPercent expresses each class as a percent of denominator; all zero
// when the denominator is not positive.
func FlowPercent(f models.FlowSums, denominator int64) models.FlowPct {
	if denominator <= 0 {
		return models.FlowPct{}
	}
	d := float64(denominator)
	return models.FlowPct{
		Institution: Round2(float64(f.Institution) / d * 100),
		Foreign:     Round2(float64(f.Foreign) / d * 100),
		Retail:      Round2(float64(f.Retail) / d * 100),
	}
}

// ChangePct is (current-baseline)/baseline*100, nil unless baseline > 0.
func ChangePct(current, baseline float64) *float64 {
	if baseline <= 0 {
		return nil
	}
	return ptr(Round2((current - baseline) / baseline * 100))
}

// ComputeEntity evaluates one entity over one resolved window.
func ComputeEntity(w models.ResolvedWindow, in EntityInput) models.EntityMetrics {
	m := models.EntityMetrics{
		EntityID:  in.Entity.ID,
		Name:      in.Entity.Name,
		Window:    w.Name(),
		Valuation: in.Valuation,
	}
	if m.Name == "" {
		m.Name = in.Entity.ID
	}

	idx := indexSeries(in.Series)

	m.PriceChangeRaw, m.ExclusionReason = PriceChange(idx, w.CurrentEndDate, w.BaselineDate)
	if m.PriceChangeRaw != nil {
		m.PriceChangePct = ptr(Round2(*m.PriceChangeRaw))
	}
	m.Included = m.PriceChangePct != nil

	var n int
	m.VolumeTotal, n = volumeOver(idx, w.CurrentDates)
	m.HasVolume = n > 0
	if n > 0 {
		m.VolumeCurrentMean = ptr(float64(m.VolumeTotal) / float64(n))
	}
	if bSum, bn := volumeOver(idx, w.BaselineDates); bn > 0 {
		m.VolumeBaselineMean = ptr(float64(bSum) / float64(bn))
	}
	if m.VolumeCurrentMean != nil && m.VolumeBaselineMean != nil {
		m.VolumeChangePct = ChangePct(*m.VolumeCurrentMean, *m.VolumeBaselineMean)
	}

	sums, fn, inferred := FlowOver(in.Flows, w.CurrentStartDate, w.CurrentEndDate)
	if fn > 0 {
		m.Flow = sums
		m.HasFlow = true
		m.RetailInferred = inferred
		denominator := sums.Total
		if denominator <= 0 {
			denominator = m.VolumeTotal
		}
		m.FlowPct = FlowPercent(sums, denominator)
	}

	return m
}
