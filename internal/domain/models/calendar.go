package models

import (
	"sort"
	"time"
)

// TradingCalendar holds strictly descending unique trading dates; offset 0
// is the most recent date.
type TradingCalendar struct {
	dates []time.Time
}

// NewTradingCalendar normalizes dates to UTC midnight, de-duplicates and
// sorts them newest first.
func NewTradingCalendar(dates []time.Time) TradingCalendar {
	seen := make(map[time.Time]bool, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := dayOf(d)
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return TradingCalendar{dates: out}
}

func (c TradingCalendar) Len() int { return len(c.dates) }

// At returns the date at offset.
func (c TradingCalendar) At(offset int) (time.Time, bool) {
	if offset < 0 || offset >= len(c.dates) {
		return time.Time{}, false
	}
	return c.dates[offset], true
}

// Dates returns a copy, newest first.
func (c TradingCalendar) Dates() []time.Time {
	return append([]time.Time(nil), c.dates...)
}

// Range returns the dates between offsets from (older) and to (newer),
// inclusive, newest first.
func (c TradingCalendar) Range(from, to int) []time.Time {
	if from < to {
		from, to = to, from
	}
	if to < 0 {
		to = 0
	}
	if from >= len(c.dates) {
		from = len(c.dates) - 1
	}
	if from < to {
		return nil
	}
	return append([]time.Time(nil), c.dates[to:from+1]...)
}

// ComparisonWindow names a current range and a baseline by calendar offset.
type ComparisonWindow struct {
	Name         string `json:"name"`
	CurrentStart int    `json:"current_start"`
	CurrentEnd   int    `json:"current_end"`
	Baseline     int    `json:"baseline"`
}

// ResolvedWindow is a window pinned to calendar dates.
type ResolvedWindow struct {
	Window            ComparisonWindow `json:"window"`
	CurrentStartDate  time.Time        `json:"current_start_date"`
	CurrentEndDate    time.Time        `json:"current_end_date"`
	BaselineDate      time.Time        `json:"baseline_date"`
	EffectiveStart    int              `json:"effective_start"`
	EffectiveEnd      int              `json:"effective_end"`
	EffectiveBaseline int              `json:"effective_baseline"`
	// CurrentDates and BaselineDates are newest first. BaselineDates is the
	// range of equal length ending at the baseline offset.
	CurrentDates  []time.Time `json:"current_dates"`
	BaselineDates []time.Time `json:"baseline_dates"`
	Degraded      bool        `json:"degraded"`
}

func (w ResolvedWindow) Name() string { return w.Window.Name }
