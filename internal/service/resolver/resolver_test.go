package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain/models"
)

const universe = `
groups:
  - id: semi
    name: 반도체
    members: ["005930.KS", "000660.KS", "058470.KQ"]
  - id: steel
    name: 철강
    members: ["005490", "005930"]
entities:
  - {id: "005930", name: 삼성전자, market: KOSPI}
  - {id: "000660", name: SK하이닉스, market: kospi, aliases: {naver: "000660"}}
  - {id: "005490", name: POSCO홀딩스, market: KOSPI, aliases: {yahoo: "PKX"}}
`

func TestParseCanonicalizesAndAliases(t *testing.T) {
	r, err := Parse([]byte(universe))
	require.NoError(t, err)

	g, ok := r.Group("semi")
	require.True(t, ok)
	assert.Equal(t, []string{"005930", "000660", "058470"}, g.Members)
	assert.Equal(t, "005930", g.Representative())

	ents := r.Resolve(g)
	require.Len(t, ents, 3)
	assert.Equal(t, "005930.KS", ents[0].Alias(SourceYahoo))
	assert.Equal(t, "005930", ents[0].Alias(SourceNaver))
	assert.Equal(t, "005930", ents[0].Alias(SourceKRX))
	assert.Equal(t, models.MarketKOSDAQ, ents[2].Market)
	assert.Equal(t, "058470.KQ", ents[2].Alias(SourceYahoo))

	posco, ok := r.Entity("005490.KS")
	require.True(t, ok)
	assert.Equal(t, "PKX", posco.Alias(SourceYahoo))
}

func TestEntityInSeveralGroups(t *testing.T) {
	r, err := Parse([]byte(universe))
	require.NoError(t, err)

	e, ok := r.Entity("005930")
	require.True(t, ok)
	assert.Equal(t, []string{"semi", "steel"}, e.GroupIDs)

	ids := make([]string, 0)
	for _, u := range r.Universe() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"005930", "000660", "058470", "005490"}, ids)
}

func TestDisplayName(t *testing.T) {
	r, err := Parse([]byte(universe))
	require.NoError(t, err)

	assert.Equal(t, "삼성전자", r.DisplayName("005930.KS"))
	assert.Equal(t, "058470", r.DisplayName("058470"))
	assert.Equal(t, "999999", r.DisplayName("999999"))
}

func TestLookupOutsideUniverse(t *testing.T) {
	r, err := Parse([]byte(universe))
	require.NoError(t, err)

	e := r.Lookup("123456.KQ")
	assert.Equal(t, "123456", e.ID)
	assert.Equal(t, "123456.KQ", e.Alias(SourceYahoo))
	assert.Equal(t, "123456", e.Alias(SourceKRX))
}

func TestNewRejectsBadGroups(t *testing.T) {
	_, err := New([]models.Group{{ID: "a", Members: []string{"1"}}, {ID: "a", Members: []string{"2"}}}, nil)
	assert.Error(t, err)

	_, err = New([]models.Group{{ID: "empty"}}, nil)
	assert.Error(t, err)
}

func TestShippedUniverseLoads(t *testing.T) {
	r, err := Load("../../../config/universe.yaml")
	require.NoError(t, err)
	assert.Len(t, r.Groups(), 11)
	assert.Equal(t, "삼성전자", r.DisplayName("005930"))
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in     string
		id     string
		market models.Market
	}{
		{"005930.KS", "005930", models.MarketKOSPI},
		{" 247540.KQ ", "247540", models.MarketKOSDAQ},
		{"005930", "005930", ""},
		{"BRK.B", "BRK.B", ""},
	}
	for _, tt := range tests {
		id, m := Canonical(tt.in)
		assert.Equal(t, tt.id, id, tt.in)
		assert.Equal(t, tt.market, m, tt.in)
	}
}
