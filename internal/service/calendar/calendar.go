// Package calendar derives the trading calendar from a reference series and
// pins named comparison windows to it.
package calendar

import (
	"fmt"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
)

// Canonical windows.
var (
	Today     = models.ComparisonWindow{Name: "today", CurrentStart: 0, CurrentEnd: 0, Baseline: 1}
	Yesterday = models.ComparisonWindow{Name: "yesterday", CurrentStart: 1, CurrentEnd: 1, Baseline: 2}
	Week      = models.ComparisonWindow{Name: "week", CurrentStart: 4, CurrentEnd: 0, Baseline: 5}
)

// DefaultWindows returns today, yesterday and week.
func DefaultWindows() []models.ComparisonWindow {
	return []models.ComparisonWindow{Today, Yesterday, Week}
}

// BuildCalendar takes the dates of a reference series, newest first and
// de-duplicated. Points with a non-positive close are still trading days.
func BuildCalendar(series []models.TimeSeriesPoint) (models.TradingCalendar, error) {
	if len(series) == 0 {
		return models.TradingCalendar{}, fmt.Errorf("build calendar: %w", domain.ErrCalendarUnavailable)
	}
	dates := make([]time.Time, 0, len(series))
	for _, p := range series {
		dates = append(dates, p.Date)
	}
	return models.NewTradingCalendar(dates), nil
}

// Until drops dates after asOf. A zero asOf returns cal unchanged.
func Until(cal models.TradingCalendar, asOf time.Time) models.TradingCalendar {
	if asOf.IsZero() {
		return cal
	}
	y, m, d := asOf.Date()
	limit := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	kept := make([]time.Time, 0, cal.Len())
	for _, day := range cal.Dates() {
		if !day.After(limit) {
			kept = append(kept, day)
		}
	}
	return models.NewTradingCalendar(kept)
}

// BaselineRange is the offset range of the same length as the current range
// that ends at the baseline offset. start is the older (larger) offset.
func BaselineRange(w models.ComparisonWindow) (start, end int) {
	length := w.CurrentStart - w.CurrentEnd + 1
	if length < 1 {
		length = 1
	}
	return w.Baseline + length - 1, w.Baseline
}

// ResolveWindow pins w to cal. Offsets beyond the calendar clamp to the
// earliest date and mark the window degraded.
func ResolveWindow(w models.ComparisonWindow, cal models.TradingCalendar) (models.ResolvedWindow, error) {
	if cal.Len() == 0 {
		return models.ResolvedWindow{}, fmt.Errorf("resolve window %q: %w", w.Name, domain.ErrCalendarUnavailable)
	}
	if w.CurrentStart < 0 || w.CurrentEnd < 0 || w.Baseline < 0 {
		return models.ResolvedWindow{}, fmt.Errorf("resolve window %q: negative offset", w.Name)
	}

	last := cal.Len() - 1
	degraded := false
	clamp := func(off int) int {
		if off > last {
			degraded = true
			return last
		}
		return off
	}

	rw := models.ResolvedWindow{
		Window:            w,
		EffectiveStart:    clamp(w.CurrentStart),
		EffectiveEnd:      clamp(w.CurrentEnd),
		EffectiveBaseline: clamp(w.Baseline),
	}
	rw.Degraded = degraded
	rw.CurrentStartDate, _ = cal.At(rw.EffectiveStart)
	rw.CurrentEndDate, _ = cal.At(rw.EffectiveEnd)
	rw.BaselineDate, _ = cal.At(rw.EffectiveBaseline)
	rw.CurrentDates = cal.Range(rw.EffectiveStart, rw.EffectiveEnd)

	bStart, bEnd := BaselineRange(w)
	if bEnd <= last {
		rw.BaselineDates = cal.Range(bStart, bEnd)
	}
	return rw, nil
}

// ResolveAll resolves every window in order.
func ResolveAll(windows []models.ComparisonWindow, cal models.TradingCalendar) ([]models.ResolvedWindow, error) {
	out := make([]models.ResolvedWindow, 0, len(windows))
	for _, w := range windows {
		rw, err := ResolveWindow(w, cal)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, nil
}

// LastWeekday returns t's date, rolled back to Friday on a weekend. It is a
// guess used only where no calendar is available.
func LastWeekday(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, -1)
	case time.Sunday:
		return day.AddDate(0, 0, -2)
	}
	return day
}

// PreviousWeekday returns the weekday before t's date.
func PreviousWeekday(t time.Time) time.Time {
	y, m, d := t.Date()
	return LastWeekday(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
