// Package news searches an RSS headline feed and condenses the results into
// a short per-group digest.
package news

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	xhttp "SectorPulse/pkg/http"
)

// Client implements repository.NewsSource over an RSS search endpoint.
type Client struct {
	searchURL string
	http      *xhttp.Client
}

func New(searchURL string, httpClient *xhttp.Client) *Client {
	if httpClient == nil {
		httpClient = xhttp.NewClient()
	}
	return &Client{searchURL: searchURL, http: httpClient}
}

type rss struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  string `xml:"source"`
}

var pubDateLayouts = []string{time.RFC1123, time.RFC1123Z, time.RFC822, time.RFC822Z, time.RFC3339}

// Search returns every parsable item of the feed for query, in feed order.
func (c *Client) Search(ctx context.Context, query string) ([]models.NewsItem, error) {
	body, err := c.http.Fetch(ctx, &xhttp.RequestOptions{
		URL: c.searchURL,
		QueryParams: url.Values{
			"q":    {query},
			"hl":   {"ko"},
			"gl":   {"KR"},
			"ceid": {"KR:ko"},
		},
	})
	if err != nil {
		return nil, domain.NewSourceError("news", "search", "", nil, err)
	}

	var feed rss
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return nil, domain.NewSourceError("news", "search", "", domain.ErrParseFailure, fmt.Errorf("decode rss: %w", err))
	}

	items := make([]models.NewsItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		published, ok := parsePubDate(it.PubDate)
		if !ok || strings.TrimSpace(it.Title) == "" {
			continue
		}
		title, publisher := splitTitle(it.Title)
		if s := strings.TrimSpace(it.Source); s != "" {
			publisher = s
		}
		items = append(items, models.NewsItem{
			Title:     title,
			Link:      strings.TrimSpace(it.Link),
			Publisher: publisher,
			Published: published,
		})
	}
	return items, nil
}

func parsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// splitTitle strips the trailing " - publisher" the feed appends.
func splitTitle(raw string) (title, publisher string) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, " - "); i > 0 {
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+3:])
	}
	return raw, ""
}
