package news

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
)

const cseBody = `{
  "items": [
    {
      "title": "Acme probed over sanctions breach",
      "link": "https://www.reuters.com/acme-probe",
      "displayLink": "www.reuters.com",
      "snippet": "Regulators opened a probe into Acme.",
      "pagemap": {"metatags": [{"article:published_time": "2024-08-01T09:00:00Z"}]}
    },
    {
      "title": "Acme denies wrongdoing",
      "link": "https://obscurecorp.net/acme",
      "displayLink": "obscurecorp.net",
      "snippet": "Acme issued a statement."
    },
    {
      "title": "Acme probed over sanctions breach",
      "link": "https://www.reuters.com/acme-probe",
      "displayLink": "www.reuters.com",
      "snippet": "Duplicate link."
    }
  ]
}`

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"acme" - Google News</title>
<item>
  <title>Acme fined over chip dispute - Reuters</title>
  <link>https://news.example.com/a</link>
  <pubDate>Mon, 05 Aug 2024 10:00:00 GMT</pubDate>
  <description>&lt;a href="https://news.example.com/a"&gt;Acme fined&lt;/a&gt; over chip dispute</description>
</item>
<item>
  <title>Acme expands plant</title>
  <link>https://blog.example.org/b</link>
  <pubDate>Tue, 06 Aug 2024 11:00:00 GMT</pubDate>
  <description>Plain text body</description>
</item>
</channel>
</rss>`

func newTestSearcher(t *testing.T, cseHandler, rssHandler http.HandlerFunc) *Searcher {
	t.Helper()
	cfg := Config{Logger: slog.New(slog.NewTextHandler(testWriter{t}, nil))}
	if cseHandler != nil {
		srv := httptest.NewServer(cseHandler)
		t.Cleanup(srv.Close)
		cfg.CSEBaseURL = srv.URL
		cfg.GoogleAPIKey = "k"
		cfg.GoogleCSEID = "cx"
	}
	if rssHandler != nil {
		srv := httptest.NewServer(rssHandler)
		t.Cleanup(srv.Close)
		cfg.RSSBaseURL = srv.URL
	}
	return NewSearcher(cfg)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSearchCSE(t *testing.T) {
	var gotQuery map[string]string
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"key": q.Get("key"), "cx": q.Get("cx"), "q": q.Get("q"),
			"num": q.Get("num"), "safe": q.Get("safe"), "lr": q.Get("lr"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cseBody))
	}, nil)

	records, err := s.Search(context.Background(), "Acme sanctions", 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"key": "k", "cx": "cx", "q": "Acme sanctions",
		"num": "10", "safe": "off", "lr": "lang_en",
	}, gotQuery)

	require.Len(t, records, 2, "duplicate URL should collapse")
	assert.Equal(t, "Acme probed over sanctions breach", records[0]["title"])
	assert.Equal(t, "https://www.reuters.com/acme-probe", records[0]["url"])
	assert.Equal(t, "www.reuters.com", records[0]["source"])
	assert.Equal(t, "2024-08-01T09:00:00Z", records[0]["publishedAt"])
	assert.Equal(t, 3, records[0]["reputation"])
	assert.Equal(t, "", records[1]["publishedAt"])
	assert.Equal(t, 1, records[1]["reputation"])
}

func TestSearchCaps(t *testing.T) {
	var gotNum string
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotNum = r.URL.Query().Get("num")
		w.Write([]byte(cseBody))
	}, nil)

	records, err := s.Search(context.Background(), "acme", 1)
	require.NoError(t, err)
	assert.Equal(t, "1", gotNum)
	assert.Len(t, records, 1)
}

func TestSearchRSSFallbackWithoutCredentials(t *testing.T) {
	s := newTestSearcher(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	})

	records, err := s.Search(context.Background(), "acme", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Acme fined over chip dispute", records[0]["title"])
	assert.Equal(t, "Reuters", records[0]["source"])
	assert.Equal(t, "2024-08-05T10:00:00Z", records[0]["publishedAt"])
	assert.Equal(t, "Acme fined over chip dispute", records[0]["snippet"])
	assert.Equal(t, 3, records[0]["reputation"])

	assert.Equal(t, "Acme expands plant", records[1]["title"])
	assert.Equal(t, "blog.example.org", records[1]["source"], "host fills in when the title has no publisher suffix")
	assert.Equal(t, 1, records[1]["reputation"])
}

func TestSearchRSSFallbackOnCSEError(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	})

	records, err := s.Search(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSearchRSSFallbackWhenThrottled(t *testing.T) {
	limits := map[string]ratelimit.Limit{ProviderCSE: {PerSecond: 0.001, Burst: 1}}
	reg := ratelimit.NewRegistry(limits)
	require.True(t, reg.Allow(ProviderCSE))

	cseCalls := 0
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		cseCalls++
		w.Write([]byte(cseBody))
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	})
	s.limiter = reg

	records, err := s.Search(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Zero(t, cseCalls, "throttled searches must not reach the API")
	assert.Len(t, records, 2)
}

func TestSearchAllProvidersFailed(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	records, err := s.Search(context.Background(), "acme", 0)
	require.Error(t, err)
	assert.Empty(t, records)
}

func TestScoreSource(t *testing.T) {
	tests := []struct {
		domain string
		want   int
	}{
		{"www.reuters.com", 3},
		{"Bloomberg.com", 3},
		{"www.ft.com", 3},
		{"apnews.com", 3},
		{"obscurecorp.net", 1},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreSource(tt.domain), tt.domain)
	}
}

func TestSplitRSSTitle(t *testing.T) {
	headline, source := splitRSSTitle("Acme fined - Reuters")
	assert.Equal(t, "Acme fined", headline)
	assert.Equal(t, "Reuters", source)

	headline, source = splitRSSTitle("Acme fined")
	assert.Equal(t, "Acme fined", headline)
	assert.Empty(t, source)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Acme fined over dispute",
		stripHTML(`<a href="https://x">Acme fined</a>  over <b>dispute</b>`))
}
