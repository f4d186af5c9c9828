package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTradingCalendarDescendingUnique(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	cal := NewTradingCalendar([]time.Time{
		day("2026-10-14"),
		day("2026-10-16"),
		time.Date(2026, 10, 16, 15, 30, 0, 0, seoul),
		day("2026-10-15"),
	})

	require.Equal(t, 3, cal.Len())
	d0, ok := cal.At(0)
	require.True(t, ok)
	assert.Equal(t, day("2026-10-16"), d0)
	d2, _ := cal.At(2)
	assert.Equal(t, day("2026-10-14"), d2)
	_, ok = cal.At(3)
	assert.False(t, ok)
	_, ok = cal.At(-1)
	assert.False(t, ok)

	assert.Equal(t, []time.Time{day("2026-10-15"), day("2026-10-14")}, cal.Range(2, 1))
	assert.Equal(t, []time.Time{day("2026-10-15"), day("2026-10-14")}, cal.Range(9, 1))
}

func TestNormalizeSeriesLastWins(t *testing.T) {
	out := NormalizeSeries([]TimeSeriesPoint{
		{Date: day("2026-10-16"), Close: 1},
		{Date: day("2026-10-15"), Close: 2},
		{Date: day("2026-10-16"), Close: 3},
	})
	require.Len(t, out, 2)
	assert.Equal(t, day("2026-10-15"), out[0].Date)
	assert.Equal(t, 3.0, out[1].Close)
}

func TestInferRetail(t *testing.T) {
	r := InvestorFlowRecord{Institution: -100, Foreign: 50}
	r.InferRetail()
	assert.Equal(t, int64(50), r.Retail)
	assert.True(t, r.RetailInferred)
}

func TestEntityAliasFallsBackToID(t *testing.T) {
	e := Entity{ID: "005930", Aliases: map[string]string{"yahoo": "005930.KS"}}
	assert.Equal(t, "005930.KS", e.Alias("yahoo"))
	assert.Equal(t, "005930", e.Alias("krx"))
	assert.Equal(t, ".KQ", MarketKOSDAQ.Suffix())
	m, ok := MarketFromSuffix(".ks")
	assert.True(t, ok)
	assert.Equal(t, MarketKOSPI, m)
}
