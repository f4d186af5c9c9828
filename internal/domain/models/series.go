package models

import (
	"sort"
	"time"
)

// TimeSeriesPoint is one daily bar.
type TimeSeriesPoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	// VolumeMissing marks a bar whose volume was absent or unparsable.
	VolumeMissing bool `json:"volume_missing,omitempty"`
}

// InvestorFlowRecord is the net traded quantity per investor class for one day.
type InvestorFlowRecord struct {
	Date           time.Time `json:"date"`
	EntityID       string    `json:"entity_id"`
	Institution    int64     `json:"institution"`
	Foreign        int64     `json:"foreign"`
	Retail         int64     `json:"retail"`
	RetailInferred bool      `json:"retail_inferred"`
	TotalVolume    int64     `json:"total_volume"`
}

// InferRetail fills Retail as the residual of the other two classes.
// This assumes the three classes net to zero, which ignores other investors.
func (r *InvestorFlowRecord) InferRetail() {
	r.Retail = -(r.Institution + r.Foreign)
	r.RetailInferred = true
}

// Fundamentals is a cross-sectional valuation snapshot row. Every ratio is
// nil when the provider did not report a usable value.
type Fundamentals struct {
	EntityID        string   `json:"entity_id"`
	Name            string   `json:"name,omitempty"`
	ValuationRatio  *float64 `json:"per"`
	BookRatio       *float64 `json:"pbr"`
	Yield           *float64 `json:"dividend_yield"`
	EarningsPerUnit *float64 `json:"eps"`
	BookPerUnit     *float64 `json:"bps"`
}

// NormalizeSeries sorts oldest first and collapses duplicate dates, keeping
// the last occurrence.
func NormalizeSeries(points []TimeSeriesPoint) []TimeSeriesPoint {
	if len(points) == 0 {
		return nil
	}
	byDate := make(map[time.Time]int, len(points))
	out := make([]TimeSeriesPoint, 0, len(points))
	for _, p := range points {
		d := dayOf(p.Date)
		p.Date = d
		if i, ok := byDate[d]; ok {
			out[i] = p
			continue
		}
		byDate[d] = len(out)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// NormalizeFlows sorts oldest first and collapses duplicate dates.
func NormalizeFlows(records []InvestorFlowRecord) []InvestorFlowRecord {
	if len(records) == 0 {
		return nil
	}
	byDate := make(map[time.Time]int, len(records))
	out := make([]InvestorFlowRecord, 0, len(records))
	for _, r := range records {
		d := dayOf(r.Date)
		r.Date = d
		if i, ok := byDate[d]; ok {
			out[i] = r
			continue
		}
		byDate[d] = len(out)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
