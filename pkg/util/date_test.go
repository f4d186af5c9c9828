package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTradingDateForms(t *testing.T) {
	want := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"20261016", "2026.10.16", "2026-10-16", " 2026/10/16 "} {
		got, ok := ParseTradingDate(s)
		if !ok {
			t.Fatalf("expected ok for %q", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: unexpected date %v", s, got)
		}
	}
}

func TestParseTradingDateUnix(t *testing.T) {
	ts := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC).Unix()
	got, ok := ParseTradingDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if DateKey(got) != DateKey(time.Unix(ts, 0).UTC()) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTradingDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if got := ParseTradingDateDefault("not-a-date", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestWithinDaysInclusive(t *testing.T) {
	from := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if !WithinDays(from, from, to) || !WithinDays(to.Add(15*time.Hour), from, to) {
		t.Fatalf("bounds must be inclusive")
	}
	if WithinDays(to.AddDate(0, 0, 1), from, to) {
		t.Fatalf("day after range must be outside")
	}
}
