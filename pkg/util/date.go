package util

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the compact trading-date form used as a map key across sources.
const DateLayout = "20060102"

var tradingDateLayouts = []string{
	DateLayout,
	"2006.01.02",
	"2006-01-02",
	"2006/01/02",
}

// ParseTradingDate parses the date forms providers use for a trading day.
// It also accepts RFC3339 and unix seconds. Returns (t, true) if any worked.
func ParseTradingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tradingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0).UTC()), true
	}
	return time.Time{}, false
}

// ParseTradingDateDefault parses a date or returns def if empty/invalid.
func ParseTradingDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTradingDate(s); ok {
		return t
	}
	return def
}

// Day truncates t to midnight UTC of its calendar date in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn returns the calendar date of t as seen from loc.
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc))
}

// DateKey formats t as YYYYMMDD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// WithinDays reports whether d lies in [from, to] comparing calendar dates only.
func WithinDays(d, from, to time.Time) bool {
	d, from, to = Day(d), Day(from), Day(to)
	return !d.Before(from) && !d.After(to)
}
