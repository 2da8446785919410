package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
	"github.com/laithharzallah/Laithstool-sub001/internal/report"
)

// ProviderCSE is the rate-limiter bucket name for Google Custom Search.
const ProviderCSE = "google_cse"

// DefaultMaxResults caps a search when the caller does not.
const DefaultMaxResults = 20

// Config configures a Searcher. CSE runs only when both Google values
// are set; the RSS fallback needs no credentials.
type Config struct {
	GoogleAPIKey string
	GoogleCSEID  string
	MaxResults   int
	Limiter      *ratelimit.Registry
	Logger       *slog.Logger
	HTTPClient   *http.Client

	// Endpoint overrides for tests.
	CSEBaseURL string
	RSSBaseURL string
}

// Searcher aggregates adverse-media results from external search
// providers, each consumed as a black box. Results are raw records in
// provider shape; the report normalizer owns sanitization.
type Searcher struct {
	apiKey     string
	cseID      string
	maxResults int
	limiter    *ratelimit.Registry
	logger     *slog.Logger
	http       *http.Client
	parser     *gofeed.Parser
	cseBase    string
	rssBase    string
}

func NewSearcher(cfg Config) *Searcher {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CSEBaseURL == "" {
		cfg.CSEBaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.RSSBaseURL == "" {
		cfg.RSSBaseURL = "https://news.google.com/rss/search"
	}
	parser := gofeed.NewParser()
	parser.Client = cfg.HTTPClient
	return &Searcher{
		apiKey:     cfg.GoogleAPIKey,
		cseID:      cfg.GoogleCSEID,
		maxResults: cfg.MaxResults,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger.With("component", "news"),
		http:       cfg.HTTPClient,
		parser:     parser,
		cseBase:    cfg.CSEBaseURL,
		rssBase:    cfg.RSSBaseURL,
	}
}

// Search collects news records for query: Google CSE first when
// configured and not throttled, Google News RSS as the keyless
// fallback. Records are URL-deduplicated in order and capped at
// maxResults (≤ the configured ceiling; 0 means the ceiling). The
// error is non-nil only when every attempted provider failed.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]report.Record, error) {
	maxItems := s.maxResults
	if maxResults > 0 && maxResults < maxItems {
		maxItems = maxResults
	}

	var out []report.Record
	var failures []error

	if s.apiKey != "" && s.cseID != "" {
		if s.limiter == nil || s.limiter.Allow(ProviderCSE) {
			items, err := s.searchCSE(ctx, query, maxItems)
			if err != nil {
				s.logger.Warn("google cse search failed", "query", query, "error", err)
				failures = append(failures, err)
			} else {
				out = append(out, items...)
			}
		} else {
			s.logger.Warn("google cse throttled", "query", query)
		}
	}

	if len(out) == 0 {
		items, err := s.searchRSS(ctx, query)
		if err != nil {
			s.logger.Warn("news rss search failed", "query", query, "error", err)
			failures = append(failures, err)
		} else {
			out = append(out, items...)
		}
	}

	deduped := dedupByURL(out)
	if len(deduped) > maxItems {
		deduped = deduped[:maxItems]
	}
	if len(deduped) == 0 && len(failures) > 0 {
		return deduped, fmt.Errorf("news: all providers failed: %w", errors.Join(failures...))
	}
	s.logger.Info("news search", "query", query, "results", len(deduped))
	return deduped, nil
}

type cseResponse struct {
	Items []cseItem `json:"items"`
}

type cseItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Snippet     string `json:"snippet"`
	Pagemap     struct {
		Metatags []map[string]string `json:"metatags"`
	} `json:"pagemap"`
}

func (s *Searcher) searchCSE(ctx context.Context, query string, maxItems int) ([]report.Record, error) {
	num := maxItems
	if num > 10 {
		num = 10 // CSE page size ceiling
	}
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.cseID)
	params.Set("q", strings.TrimSpace(query))
	params.Set("num", fmt.Sprint(num))
	params.Set("safe", "off")
	params.Set("lr", "lang_en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cseBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google cse: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google cse: status %d", resp.StatusCode)
	}
	var body cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("google cse: decode: %w", err)
	}

	records := make([]report.Record, 0, len(body.Items))
	for _, it := range body.Items {
		var publishedAt string
		if len(it.Pagemap.Metatags) > 0 {
			publishedAt = it.Pagemap.Metatags[0]["article:published_time"]
		}
		records = append(records, report.Record{
			"title":       it.Title,
			"url":         it.Link,
			"source":      it.DisplayLink,
			"publishedAt": publishedAt,
			"snippet":     it.Snippet,
			"reputation":  ScoreSource(it.DisplayLink),
		})
	}
	return records, nil
}

// searchRSS queries the Google News RSS feed, which needs no API key.
// Titles arrive as "Headline - Publisher"; the publisher suffix feeds
// the source field.
func (s *Searcher) searchRSS(ctx context.Context, query string) ([]report.Record, error) {
	params := url.Values{}
	params.Set("q", strings.TrimSpace(query))
	params.Set("hl", "en-US")
	params.Set("gl", "US")
	params.Set("ceid", "US:en")

	feed, err := s.parser.ParseURLWithContext(s.rssBase+"?"+params.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("google news rss: %w", err)
	}

	records := make([]report.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		title, source := splitRSSTitle(item.Title)
		if source == "" {
			source = linkHost(item.Link)
		}
		var publishedAt string
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		records = append(records, report.Record{
			"title":       title,
			"url":         item.Link,
			"source":      source,
			"publishedAt": publishedAt,
			"snippet":     stripHTML(item.Description),
			"reputation":  ScoreSource(source),
		})
	}
	return records, nil
}

// preferredOutlets earn the top reputation score.
var preferredOutlets = []string{
	"reuters", "bloomberg", "ft.com", "wsj.com", "apnews", "bbc", "cnbc", "theguardian",
}

// ScoreSource rates a source domain: 3 for established outlets, 1 for
// anything else, 0 for unknown.
func ScoreSource(domain string) int {
	if domain == "" {
		return 0
	}
	d := strings.ToLower(domain)
	for _, p := range preferredOutlets {
		if strings.Contains(d, p) {
			return 3
		}
	}
	return 1
}

func dedupByURL(records []report.Record) []report.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]report.Record, 0, len(records))
	for _, r := range records {
		u, _ := r["url"].(string)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, r)
	}
	return out
}

// splitRSSTitle separates a Google News "Headline - Publisher" title.
// Titles without the suffix come back with an empty source.
func splitRSSTitle(title string) (headline, source string) {
	if i := strings.LastIndex(title, " - "); i > 0 {
		return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
	}
	return strings.TrimSpace(title), ""
}

func linkHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
