// Package naver scrapes the finance item pages for investor flow and
// fundamentals. Pages are EUC-KR encoded HTML.
package naver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/internal/service/resolver"
	xhttp "SectorPulse/pkg/http"
	"SectorPulse/pkg/htmltable"
	"SectorPulse/pkg/util"
)

const (
	flowPath = "/item/frgn.naver"
	mainPath = "/item/main.naver"

	flowMinCells = 7
	maxFlowPages = 3
)

// Table strategies in preference order; the later ones survive class renames.
var (
	flowTables = []htmltable.TableStrategy{
		htmltable.LabelTable{Selector: "table.type2", Label: "날짜"},
		htmltable.LabelTable{Selector: "table", Label: "외국인"},
	}
	fundamentalsTables = []htmltable.TableStrategy{
		htmltable.LabelTable{Selector: "div.cop_analysis table", Label: "주요재무정보"},
		htmltable.LabelTable{Selector: "table", Label: "주요재무정보"},
	}
)

// Client implements repository.FlowSource and repository.FundamentalsSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
}

// New builds a client. Every page request waits on limiter under the
// "naver" key.
func New(baseURL string, httpClient *xhttp.Client, limiter *ratelimit.Limiter) *Client {
	if httpClient == nil {
		httpClient = xhttp.NewClient()
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, limiter: limiter}
}

func (c *Client) Name() string { return resolver.SourceNaver }

func (c *Client) page(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, resolver.SourceNaver); err != nil {
		return nil, err
	}
	body, err := c.http.Fetch(ctx, &xhttp.RequestOptions{URL: c.baseURL + path, QueryParams: query})
	if err != nil {
		return nil, err
	}
	return decodeEUCKR(body)
}

// decodeEUCKR converts a page to UTF-8. Pages that are already valid UTF-8
// with a utf-8 meta tag pass through.
func decodeEUCKR(body []byte) ([]byte, error) {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.ReplaceAll(bytes.ToLower(head), []byte(`"`), nil)
	if bytes.Contains(head, []byte("charset=utf-8")) {
		return body, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), korean.EUCKR.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decode euc-kr: %w", err)
	}
	return out, nil
}

// FetchFlow reads daily institution/foreign net flow. The page reports no
// retail column, so retail is inferred on every record.
func (c *Client) FetchFlow(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.InvestorFlowRecord, error) {
	code := entity.Alias(resolver.SourceNaver)
	var records []models.InvestorFlowRecord

	for page := 1; page <= maxFlowPages; page++ {
		body, err := c.page(ctx, flowPath, url.Values{"code": {code}, "page": {strconv.Itoa(page)}})
		if err != nil {
			return nil, c.wrap("flow", entity.ID, nil, err)
		}
		rows, oldest, err := parseFlowPage(body, entity.ID)
		if err != nil {
			if page > 1 {
				break
			}
			return nil, c.wrap("flow", entity.ID, domain.ErrParseFailure, err)
		}
		for _, r := range rows {
			if util.WithinDays(r.Date, from, to) {
				records = append(records, r)
			}
		}
		if len(rows) == 0 || !oldest.After(util.Day(from)) {
			break
		}
	}
	return models.NormalizeFlows(records), nil
}

// parseFlowPage returns the rows of one flow page and the oldest date seen.
func parseFlowPage(body []byte, entityID string) ([]models.InvestorFlowRecord, time.Time, error) {
	doc, err := htmltable.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, time.Time{}, err
	}
	table, ok := htmltable.FirstTable(doc, flowTables...)
	if !ok {
		return nil, time.Time{}, errors.New("flow table not found")
	}

	var out []models.InvestorFlowRecord
	var oldest time.Time
	for _, cells := range htmltable.Rows(table, flowMinCells) {
		d, ok := util.ParseTradingDate(cells[0])
		if !ok {
			continue
		}
		if oldest.IsZero() || d.Before(oldest) {
			oldest = d
		}
		total, okTotal := util.ParseInt64(cells[4])
		inst, okInst := util.ParseInt64(cells[5])
		foreign, okForeign := util.ParseInt64(cells[6])
		if !okTotal || !okInst || !okForeign {
			continue
		}
		r := models.InvestorFlowRecord{Date: d, EntityID: entityID, Institution: inst, Foreign: foreign, TotalVolume: total}
		r.InferRetail()
		out = append(out, r)
	}
	return out, oldest, nil
}

// fundamentalsRows maps row labels of the summary table to setters.
var fundamentalsRows = []struct {
	label string
	set   func(f *models.Fundamentals, v float64)
}{
	{"PER", func(f *models.Fundamentals, v float64) { f.ValuationRatio = &v }},
	{"PBR", func(f *models.Fundamentals, v float64) { f.BookRatio = &v }},
	{"EPS", func(f *models.Fundamentals, v float64) { f.EarningsPerUnit = &v }},
	{"BPS", func(f *models.Fundamentals, v float64) { f.BookPerUnit = &v }},
	{"시가배당률", func(f *models.Fundamentals, v float64) { f.Yield = &v }},
}

// FetchFundamentals reads the summary financials table of the main page.
// asof is ignored: the page only shows the latest figures.
func (c *Client) FetchFundamentals(ctx context.Context, entity models.Entity, _ time.Time) (models.Fundamentals, error) {
	f := models.Fundamentals{EntityID: entity.ID, Name: entity.Name}
	body, err := c.page(ctx, mainPath, url.Values{"code": {entity.Alias(resolver.SourceNaver)}})
	if err != nil {
		return f, c.wrap("fundamentals", entity.ID, nil, err)
	}
	if err := parseFundamentals(body, &f); err != nil {
		return f, c.wrap("fundamentals", entity.ID, domain.ErrParseFailure, err)
	}
	return f, nil
}

func parseFundamentals(body []byte, f *models.Fundamentals) error {
	doc, err := htmltable.Parse(bytes.NewReader(body))
	if err != nil {
		return err
	}
	table, ok := htmltable.FirstTable(doc, fundamentalsTables...)
	if !ok {
		return errors.New("financial summary table not found")
	}
	found := 0
	for _, r := range fundamentalsRows {
		cells, ok := htmltable.LabelRow{Label: r.label}.FindRow(table)
		if !ok {
			continue
		}
		if v, ok := latestNumber(cells); ok {
			r.set(f, v)
			found++
		}
	}
	if found == 0 {
		return errors.New("no fundamentals rows")
	}
	return nil
}

// latestNumber returns the right-most cell that parses as a number.
func latestNumber(cells []string) (float64, bool) {
	for i := len(cells) - 1; i >= 0; i-- {
		if v, ok := util.ParseNumber(cells[i]); ok {
			return v, true
		}
	}
	return 0, false
}

func (c *Client) wrap(op, entity string, kind, err error) error {
	return domain.NewSourceError(resolver.SourceNaver, op, entity, kind, err)
}
