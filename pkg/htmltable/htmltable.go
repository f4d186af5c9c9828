// Package htmltable locates label-addressed tables and rows in scraped pages.
// Strategies return an optional match; callers decide what "absent" means.
package htmltable

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableStrategy finds one table in a document.
type TableStrategy interface {
	FindTable(doc *goquery.Document) (*goquery.Selection, bool)
}

// RowStrategy finds one row in a table and returns its value cells.
type RowStrategy interface {
	FindRow(table *goquery.Selection) ([]string, bool)
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// LabelTable matches the first table under Selector whose text contains Label.
type LabelTable struct {
	Selector string
	Label    string
}

func (s LabelTable) FindTable(doc *goquery.Document) (*goquery.Selection, bool) {
	sel := s.Selector
	if sel == "" {
		sel = "table"
	}
	var found *goquery.Selection
	doc.Find(sel).EachWithBreak(func(_ int, t *goquery.Selection) bool {
		if strings.Contains(t.Text(), s.Label) {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

// FirstTable tries strategies in order and returns the first match.
func FirstTable(doc *goquery.Document, strategies ...TableStrategy) (*goquery.Selection, bool) {
	for _, s := range strategies {
		if t, ok := s.FindTable(doc); ok {
			return t, true
		}
	}
	return nil, false
}

// LabelRow matches the first row whose leading cell starts with Label. The
// returned cells exclude the label cell.
type LabelRow struct {
	Label string
}

func (s LabelRow) FindRow(table *goquery.Selection) ([]string, bool) {
	var cells []string
	found := false
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		all := tr.ChildrenFiltered("th, td")
		if all.Length() == 0 {
			return true
		}
		if !strings.HasPrefix(CellText(all.First()), s.Label) {
			return true
		}
		all.Slice(1, all.Length()).Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, CellText(c))
		})
		found = true
		return false
	})
	return cells, found
}

// Rows returns the td texts of every row that has at least minCells td cells.
func Rows(table *goquery.Selection, minCells int) [][]string {
	var out [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < minCells {
			return
		}
		row := make([]string, 0, tds.Length())
		tds.Each(func(_ int, c *goquery.Selection) {
			row = append(row, CellText(c))
		})
		out = append(out, row)
	})
	return out
}

// CellText returns the cell text with whitespace runs collapsed.
func CellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
