// Package krx reads the exchange data gateway: per-ticker bars and investor
// flow, and bulk or per-ticker fundamentals. Numbers arrive as strings.
package krx

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/internal/service/resolver"
	xhttp "SectorPulse/pkg/http"
	"SectorPulse/pkg/util"
)

// Client implements SeriesSource, FlowSource, SnapshotSource and
// FundamentalsSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
	markets []string
	limiter *ratelimit.Limiter
}

// New builds a client for markets. Requests wait on limiter under the krx key.
func New(baseURL string, httpClient *xhttp.Client, markets []string, limiter *ratelimit.Limiter) *Client {
	if httpClient == nil {
		httpClient = xhttp.NewClient()
	}
	if len(markets) == 0 {
		markets = []string{string(models.MarketKOSPI), string(models.MarketKOSDAQ)}
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, markets: markets, limiter: limiter}
}

func (c *Client) Name() string { return resolver.SourceKRX }

type ohlcvRow struct {
	Date   string `json:"date"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

type flowRow struct {
	Date        string `json:"date"`
	Institution string `json:"institution"`
	Foreign     string `json:"foreign"`
	Retail      string `json:"retail"`
	TotalVolume string `json:"total_volume"`
}

type fundamentalsRow struct {
	Code string `json:"code"`
	Name string `json:"name"`
	PER  string `json:"per"`
	PBR  string `json:"pbr"`
	DIV  string `json:"div"`
	EPS  string `json:"eps"`
	BPS  string `json:"bps"`
}

type rowsResponse[T any] struct {
	Rows []T `json:"rows"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx, resolver.SourceKRX); err != nil {
		return err
	}
	return c.http.SendAndParse(ctx, &xhttp.RequestOptions{URL: c.baseURL + path, QueryParams: query}, dest)
}

func rangeQuery(code string, from, to time.Time) url.Values {
	return url.Values{"code": {code}, "from": {util.DateKey(from)}, "to": {util.DateKey(to)}}
}

// FetchSeries returns daily bars oldest first. Rows with an unreadable date
// or close are dropped; an unreadable volume marks the bar's volume missing.
func (c *Client) FetchSeries(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.TimeSeriesPoint, error) {
	var resp rowsResponse[ohlcvRow]
	if err := c.get(ctx, "/ohlcv", rangeQuery(entity.Alias(resolver.SourceKRX), from, to), &resp); err != nil {
		return nil, c.wrap("series", entity.ID, err)
	}
	points := make([]models.TimeSeriesPoint, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		d, ok := util.ParseTradingDate(r.Date)
		if !ok {
			continue
		}
		closePx, ok := util.ParseNumber(r.Close)
		if !ok {
			continue
		}
		p := models.TimeSeriesPoint{Date: d, Close: closePx}
		p.Open, _ = util.ParseNumber(r.Open)
		p.High, _ = util.ParseNumber(r.High)
		p.Low, _ = util.ParseNumber(r.Low)
		if v, ok := util.ParseInt64(r.Volume); ok {
			p.Volume = v
		} else {
			p.VolumeMissing = true
		}
		points = append(points, p)
	}
	return models.NormalizeSeries(points), nil
}

// FetchFlow returns investor flow with retail as reported. A row without a
// retail figure gets it inferred; a row with an unreadable institution,
// foreign or total figure is dropped.
func (c *Client) FetchFlow(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.InvestorFlowRecord, error) {
	var resp rowsResponse[flowRow]
	if err := c.get(ctx, "/investor-flow", rangeQuery(entity.Alias(resolver.SourceKRX), from, to), &resp); err != nil {
		return nil, c.wrap("flow", entity.ID, err)
	}
	out := make([]models.InvestorFlowRecord, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		d, ok := util.ParseTradingDate(r.Date)
		if !ok {
			continue
		}
		inst, okInst := util.ParseInt64(r.Institution)
		foreign, okForeign := util.ParseInt64(r.Foreign)
		total, okTotal := util.ParseInt64(r.TotalVolume)
		if !okInst || !okForeign || !okTotal {
			continue
		}
		rec := models.InvestorFlowRecord{Date: d, EntityID: entity.ID, Institution: inst, Foreign: foreign, TotalVolume: total}
		if v, ok := util.ParseInt64(r.Retail); ok {
			rec.Retail = v
		} else {
			rec.InferRetail()
		}
		out = append(out, rec)
	}
	return models.NormalizeFlows(out), nil
}

// FetchSnapshot merges the bulk fundamentals of every configured market for
// asof. A non-nil universe filters the result to its ids. An error is
// returned only when every market failed.
func (c *Client) FetchSnapshot(ctx context.Context, asof time.Time, universe []models.Entity) (map[string]models.Fundamentals, error) {
	var keep map[string]models.Entity
	if universe != nil {
		keep = make(map[string]models.Entity, len(universe))
		for _, e := range universe {
			keep[e.Alias(resolver.SourceKRX)] = e
		}
	}

	out := make(map[string]models.Fundamentals)
	var errs []error
	for _, market := range c.markets {
		var resp rowsResponse[fundamentalsRow]
		q := url.Values{"date": {util.DateKey(asof)}, "market": {market}}
		if err := c.get(ctx, "/fundamentals", q, &resp); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, r := range resp.Rows {
			code := strings.TrimSpace(r.Code)
			if code == "" {
				continue
			}
			f := toFundamentals(r)
			if keep != nil {
				e, ok := keep[code]
				if !ok {
					continue
				}
				f.EntityID = e.ID
				if f.Name == "" {
					f.Name = e.Name
				}
			}
			out[f.EntityID] = f
		}
	}
	if len(errs) == len(c.markets) && len(errs) > 0 {
		return nil, c.wrap("snapshot", "", errors.Join(errs...))
	}
	return out, nil
}

// FetchFundamentals reads one ticker's fundamentals for asof.
func (c *Client) FetchFundamentals(ctx context.Context, entity models.Entity, asof time.Time) (models.Fundamentals, error) {
	var r fundamentalsRow
	path := "/fundamentals/" + url.PathEscape(entity.Alias(resolver.SourceKRX))
	if err := c.get(ctx, path, url.Values{"date": {util.DateKey(asof)}}, &r); err != nil {
		return models.Fundamentals{EntityID: entity.ID}, c.wrap("fundamentals", entity.ID, err)
	}
	f := toFundamentals(r)
	f.EntityID = entity.ID
	if f.Name == "" {
		f.Name = entity.Name
	}
	return f, nil
}

// toFundamentals leaves a ratio nil when the gateway sent "-", "" or garbage.
func toFundamentals(r fundamentalsRow) models.Fundamentals {
	f := models.Fundamentals{EntityID: strings.TrimSpace(r.Code), Name: strings.TrimSpace(r.Name)}
	f.ValuationRatio = number(r.PER)
	f.BookRatio = number(r.PBR)
	f.Yield = number(r.DIV)
	f.EarningsPerUnit = number(r.EPS)
	f.BookPerUnit = number(r.BPS)
	return f
}

func number(s string) *float64 {
	v, ok := util.ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

func (c *Client) wrap(op, entity string, err error) error {
	kind := domain.ErrSourceUnavailable
	if errors.Is(err, xhttp.ErrDecode) {
		kind = domain.ErrParseFailure
	}
	return domain.NewSourceError(resolver.SourceKRX, op, entity, kind, err)
}
