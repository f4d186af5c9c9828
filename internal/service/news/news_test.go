package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/domain"
	"SectorPulse/internal/domain/models"
	xhttp "SectorPulse/pkg/http"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item><title>반도체 수출 급증에 주가 상승 - 한국경제</title><link>https://example.com/1</link><pubDate>Fri, 16 Oct 2026 01:10:00 GMT</pubDate><source url="https://hankyung.com">한국경제</source></item>
<item><title>반도체 수출 급증에 주가 강세 - 매일경제</title><link>https://example.com/2</link><pubDate>Fri, 16 Oct 2026 02:00:00 GMT</pubDate></item>
<item><title>메모리 가격 반등 기대감 - 연합뉴스</title><link>https://example.com/3</link><pubDate>Fri, 16 Oct 2026 03:00:00 GMT</pubDate></item>
<item><title>어제 기사 - 조선비즈</title><link>https://example.com/4</link><pubDate>Wed, 14 Oct 2026 03:00:00 GMT</pubDate></item>
<item><title>날짜 없는 기사</title><link>https://example.com/5</link><pubDate>soon</pubDate></item>
</channel></rss>`

var kst = time.FixedZone("KST", 9*3600)

func TestSearchParsesFeed(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()
	c := New(srv.URL+"/rss/search", xhttp.NewClient(xhttp.WithTimeout(time.Second)))

	items, err := c.Search(context.Background(), Query("반도체"))

	require.NoError(t, err)
	assert.Equal(t, "반도체 주식 뉴스", gotQuery)
	require.Len(t, items, 4)
	assert.Equal(t, "반도체 수출 급증에 주가 상승", items[0].Title)
	assert.Equal(t, "한국경제", items[0].Publisher)
	assert.Equal(t, "매일경제", items[1].Publisher)
	assert.Equal(t, time.Date(2026, 10, 16, 1, 10, 0, 0, time.UTC), items[0].Published.UTC())
}

func TestSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "down" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("<rss><channel><item>"))
	}))
	defer srv.Close()
	c := New(srv.URL, nil)

	_, err := c.Search(context.Background(), "down")
	assert.True(t, errors.Is(err, domain.ErrSourceUnavailable))

	_, err = c.Search(context.Background(), "broken")
	assert.True(t, errors.Is(err, domain.ErrParseFailure))
}

func item(title string, at time.Time) models.NewsItem {
	return models.NewsItem{Title: title, Published: at}
}

func TestDigestFiltersDateAndDuplicates(t *testing.T) {
	asOf := time.Date(2026, 10, 16, 0, 0, 0, 0, kst)
	items := []models.NewsItem{
		item("반도체 수출 급증에 주가 상승", time.Date(2026, 10, 16, 1, 0, 0, 0, time.UTC)),
		item("반도체 수출 급증에 주가 강세", time.Date(2026, 10, 16, 2, 0, 0, 0, time.UTC)),
		item("메모리 가격 반등 기대감", time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)),
		item("전날 밤 기사", time.Date(2026, 10, 15, 15, 30, 0, 0, time.UTC)),
		item("어제 기사", time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)),
		item("장 마감 후 외국인 순매수 확대", time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)),
		item("하루 더 남은 기사", time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)),
	}

	got := Digest(items, asOf, kst, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "반도체 수출 급증에 주가 상승", got[0].Title)
	assert.Equal(t, "메모리 가격 반등 기대감", got[1].Title)
	assert.Equal(t, "전날 밤 기사", got[2].Title, "15 Oct 15:30 UTC is 16 Oct in Seoul")
}

func TestDigestEmpty(t *testing.T) {
	assert.Empty(t, Digest(nil, time.Now(), time.UTC, 0))
}

func TestSimilarity(t *testing.T) {
	a := wordSet("a b c d")
	b := wordSet("a b c e")
	assert.Equal(t, 0.75, Similarity(a, b))
	assert.Equal(t, 0.0, Similarity(wordSet(""), wordSet("")))
}
