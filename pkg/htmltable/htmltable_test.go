package htmltable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<table class="type2"><tr><th>순위</th></tr><tr><td>1</td></tr></table>
<table class="type2">
  <tr><th>날짜</th><th>종가</th><th>전일비</th><th>등락률</th><th>거래량</th><th>기관</th><th>외국인</th></tr>
  <tr><td>2026.10.16</td><td>71,000</td><td>500</td><td>+0.71%</td><td>12,345,678</td><td>-100</td><td>50</td></tr>
  <tr><td colspan="7"></td></tr>
  <tr><td>2026.10.15</td><td>70,500</td><td>0</td><td>0.00%</td><td>9,000,000</td><td>200</td><td>-300</td></tr>
</table>
<table class="tb_type1">
  <caption>주요재무정보</caption>
  <tr><th>PER(배)</th><td> 12.50 </td><td>11.30</td><td></td></tr>
  <tr><th>PBR(배)</th><td>1.20</td><td>1.10</td><td>-</td></tr>
</table>
</body></html>`

func TestLabelTableAndRows(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	table, ok := LabelTable{Selector: "table.type2", Label: "날짜"}.FindTable(doc)
	require.True(t, ok)

	rows := Rows(table, 7)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026.10.16", rows[0][0])
	assert.Equal(t, "12,345,678", rows[0][4])
	assert.Equal(t, "-300", rows[1][6])
}

func TestLabelTableMissing(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)

	_, ok := LabelTable{Selector: "table.type2", Label: "주요재무정보"}.FindTable(doc)
	assert.False(t, ok)

	table, ok := FirstTable(doc,
		LabelTable{Selector: "table.missing", Label: "주요재무정보"},
		LabelTable{Label: "주요재무정보"},
	)
	require.True(t, ok)
	assert.True(t, table.HasClass("tb_type1"))
}

func TestLabelRow(t *testing.T) {
	doc, err := Parse(strings.NewReader(page))
	require.NoError(t, err)
	table, ok := LabelTable{Label: "주요재무정보"}.FindTable(doc)
	require.True(t, ok)

	cells, ok := LabelRow{Label: "PER"}.FindRow(table)
	require.True(t, ok)
	assert.Equal(t, []string{"12.50", "11.30", ""}, cells)

	_, ok = LabelRow{Label: "EPS"}.FindRow(table)
	assert.False(t, ok)
}
