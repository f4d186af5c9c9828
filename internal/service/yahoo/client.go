// Package yahoo reads daily bars from the chart JSON API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/internal/service/resolver"
	xhttp "SectorPulse/pkg/http"
	"SectorPulse/pkg/util"
)

// Client implements repository.SeriesSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
	loc     *time.Location
	limiter *ratelimit.Limiter
}

// New builds a client. loc is the exchange timezone used to turn bar
// timestamps into trading dates. Requests wait on limiter under the yahoo key.
func New(baseURL string, httpClient *xhttp.Client, loc *time.Location, limiter *ratelimit.Limiter) *Client {
	if httpClient == nil {
		httpClient = xhttp.NewClient()
	}
	if loc == nil {
		loc = time.UTC
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, loc: loc, limiter: limiter}
}

func (c *Client) Name() string { return resolver.SourceYahoo }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries returns bars between from and to inclusive, oldest first.
func (c *Client) FetchSeries(ctx context.Context, entity models.Entity, from, to time.Time) ([]models.TimeSeriesPoint, error) {
	symbol := entity.Alias(resolver.SourceYahoo)
	if err := c.limiter.Wait(ctx, resolver.SourceYahoo); err != nil {
		return nil, c.wrap(entity.ID, domain.ErrSourceUnavailable, err)
	}
	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		URL: c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: url.Values{
			"period1":  {strconv.FormatInt(util.Day(from).Unix(), 10)},
			"period2":  {strconv.FormatInt(util.Day(to).AddDate(0, 0, 1).Unix(), 10)},
			"interval": {"1d"},
		},
	}, &resp)
	if err != nil {
		if xhttp.IsStatus(err, 404) {
			return nil, nil
		}
		return nil, c.wrap(entity.ID, classify(err), err)
	}
	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, nil
		}
		return nil, c.wrap(entity.ID, domain.ErrSourceUnavailable, fmt.Errorf("%s: %s", e.Code, e.Description))
	}

	points, err := c.parse(resp)
	if err != nil {
		return nil, c.wrap(entity.ID, domain.ErrParseFailure, err)
	}

	out := points[:0]
	for _, p := range points {
		if util.WithinDays(p.Date, from, to) {
			out = append(out, p)
		}
	}
	return models.NormalizeSeries(out), nil
}

// parse zips timestamps with the quote arrays. Slots with a null or missing
// close are skipped.
func (c *Client) parse(resp chartResponse) ([]models.TimeSeriesPoint, error) {
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	r := resp.Chart.Result[0]
	if len(r.Timestamp) == 0 {
		return nil, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, errors.New("chart result without quote indicators")
	}
	q := r.Indicators.Quote[0]

	points := make([]models.TimeSeriesPoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		p := models.TimeSeriesPoint{
			Date:  util.DayIn(time.Unix(ts, 0), c.loc),
			Close: *closePx,
		}
		if v := at(q.Open, i); v != nil {
			p.Open = *v
		}
		if v := at(q.High, i); v != nil {
			p.High = *v
		}
		if v := at(q.Low, i); v != nil {
			p.Low = *v
		}
		if v := at(q.Volume, i); v != nil {
			p.Volume = int64(*v)
		} else {
			p.VolumeMissing = true
		}
		points = append(points, p)
	}
	return points, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func classify(err error) error {
	if errors.Is(err, xhttp.ErrDecode) {
		return domain.ErrParseFailure
	}
	return domain.ErrSourceUnavailable
}

func (c *Client) wrap(entity string, kind, err error) error {
	return domain.NewSourceError(resolver.SourceYahoo, "series", entity, kind, err)
}
