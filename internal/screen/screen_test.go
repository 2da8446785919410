package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laithharzallah/Laithstool-sub001/internal/cache"
	"github.com/laithharzallah/Laithstool-sub001/internal/registry"
	"github.com/laithharzallah/Laithstool-sub001/internal/report"
	"github.com/laithharzallah/Laithstool-sub001/internal/sanctions"
	"github.com/laithharzallah/Laithstool-sub001/internal/summarize"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, nil))
}

type fakeRegistry struct {
	mu         sync.Mutex
	enabled    bool
	candidates []registry.Candidate
	profile    *registry.Profile
	searchErr  error
	lookupErr  error
	searches   int
	lookups    int
	lastLookup string
}

func (f *fakeRegistry) Enabled() bool { return f.enabled }

func (f *fakeRegistry) Search(ctx context.Context, name string) ([]registry.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return f.candidates, f.searchErr
}

func (f *fakeRegistry) Lookup(ctx context.Context, corpCode string) (*registry.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	f.lastLookup = corpCode
	return f.profile, f.lookupErr
}

type fakeNews struct {
	mu    sync.Mutex
	items []report.Record
	err   error
	calls int
}

func (f *fakeNews) Search(ctx context.Context, query string, maxResults int) ([]report.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.items, f.err
}

type fakeModel struct {
	mu       sync.Mutex
	enabled  bool
	digest   summarize.NewsDigest
	analysis summarize.IndividualAnalysis
	err      error
	calls    int
}

func (f *fakeModel) Enabled() bool { return f.enabled }

func (f *fakeModel) SummarizeNews(ctx context.Context, company string, items []report.Record) (summarize.NewsDigest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.digest, f.err
}

func (f *fakeModel) AnalyzeIndividual(ctx context.Context, fi summarize.IndividualFindings) (summarize.IndividualAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.analysis, f.err
}

type fakeWatchlist struct {
	mu      sync.Mutex
	enabled bool
	result  sanctions.Result
	err     error
	calls   int
}

func (f *fakeWatchlist) Enabled() bool { return f.enabled }

func (f *fakeWatchlist) ScreenIndividual(ctx context.Context, q sanctions.Query) (sanctions.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func newTestScreener(t *testing.T, reg *fakeRegistry, n *fakeNews, m *fakeModel, w *fakeWatchlist) *Screener {
	t.Helper()
	return New(Config{
		Memo:      cache.NewMemo(cache.New()),
		Registry:  reg,
		News:      n,
		Model:     m,
		Watchlist: w,
		Logger:    testLogger(t),
	})
}

func sampleNews() []report.Record {
	return []report.Record{
		{"title": "CEO John Smith under investigation", "url": "https://n/1", "source": "www.reuters.com", "snippet": "probe"},
		{"title": "Acme opens new plant", "url": "https://n/2", "source": "blog.example.org"},
	}
}

func TestScreenCompany(t *testing.T) {
	n := &fakeNews{items: sampleNews()}
	m := &fakeModel{enabled: true, digest: summarize.NewsDigest{
		Summary: "One open investigation.",
		Items: []report.Record{
			{"title": "CEO John Smith under investigation", "url": "https://n/1", "sentiment": "negative", "severity": 5},
		},
	}}
	s := newTestScreener(t, &fakeRegistry{}, n, m, &fakeWatchlist{})

	rep, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme", Country: "US"})
	require.NoError(t, err)

	assert.Equal(t, "Acme", rep.Company.Name)
	assert.Equal(t, "One open investigation.", rep.AdverseMedia.Summary)

	require.Len(t, rep.AdverseMedia.Items, 2)
	assert.Equal(t, "negative", rep.AdverseMedia.Items[0].Sentiment)
	assert.Equal(t, 5, rep.AdverseMedia.Items[0].Severity)
	assert.Equal(t, "probe", rep.AdverseMedia.Items[0].Snippet, "raw snippet survives classification merge")
	assert.Equal(t, "neutral", rep.AdverseMedia.Items[1].Sentiment)
	assert.Equal(t, 3, rep.AdverseMedia.Items[1].Severity)

	require.Len(t, rep.Executives, 1)
	assert.Equal(t, "John Smith", rep.Executives[0].Name)
	assert.Equal(t, "CEO", rep.Executives[0].Role)

	assert.Equal(t, []string{"web", "openai"}, rep.Meta.Sources)
	assert.Empty(t, rep.Meta.Warnings)
	assert.False(t, rep.Meta.CacheHit)
	assert.Equal(t, map[string]bool{"registry": false, "news": true, "ai": true, "sanctions": false}, rep.Meta.FeatureFlags)
}

func TestScreenCompanyCacheHit(t *testing.T) {
	n := &fakeNews{items: sampleNews()}
	m := &fakeModel{enabled: true}
	s := newTestScreener(t, &fakeRegistry{}, n, m, &fakeWatchlist{})
	req := CompanyRequest{Company: "Acme"}

	first, err := s.ScreenCompany(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Meta.CacheHit)

	second, err := s.ScreenCompany(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Meta.CacheHit)
	assert.Equal(t, 1, n.calls, "cache hit must not re-run providers")

	_, err = s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme", Level: "enhanced"})
	require.NoError(t, err)
	assert.Equal(t, 2, n.calls, "different level is a different screening")
}

func TestScreenCompanyRegistryProfile(t *testing.T) {
	reg := &fakeRegistry{
		enabled: true,
		profile: &registry.Profile{
			CorpCode:    "00126380",
			Name:        "삼성전자(주)",
			NameEng:     "SAMSUNG ELECTRONICS CO,.LTD",
			StockCode:   "005930",
			CEOName:     "한종희",
			HomepageURL: "www.samsung.com",
		},
	}
	s := newTestScreener(t, reg, &fakeNews{items: sampleNews()}, &fakeModel{}, &fakeWatchlist{})

	rep, err := s.ScreenCompany(context.Background(), CompanyRequest{
		Company:    "Samsung Electronics",
		RegistryID: "00126380",
	})
	require.NoError(t, err)

	assert.Equal(t, "00126380", reg.lastLookup)
	assert.Zero(t, reg.searches, "explicit corp code skips search")

	require.NotEmpty(t, rep.Executives)
	assert.Equal(t, "한종희", rep.Executives[0].Name)
	assert.Equal(t, "CEO", rep.Executives[0].Role)
	assert.Equal(t, "dart", rep.Executives[0].Source)

	assert.Equal(t, []string{"dart", "web"}, rep.Meta.Sources)
	assert.Equal(t, "www.samsung.com", rep.Company.Website)
	assert.Equal(t, "00126380", rep.Company.Identifiers.Other["dart_corp_code"])
	assert.Equal(t, "005930", rep.Company.Identifiers.Other["stock_code"])
}

func TestScreenCompanyKoreanNameResolvesThroughSearch(t *testing.T) {
	reg := &fakeRegistry{
		enabled:    true,
		candidates: []registry.Candidate{{Name: "삼성전자", CorpCode: "00126380"}},
		profile:    &registry.Profile{CorpCode: "00126380", CEOName: "한종희"},
	}
	s := newTestScreener(t, reg, &fakeNews{}, &fakeModel{}, &fakeWatchlist{})

	_, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "삼성전자"})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.searches)
	assert.Equal(t, "00126380", reg.lastLookup)
}

func TestScreenCompanySkipsRegistryForNonKorean(t *testing.T) {
	reg := &fakeRegistry{enabled: true, profile: &registry.Profile{}}
	s := newTestScreener(t, reg, &fakeNews{}, &fakeModel{}, &fakeWatchlist{})

	_, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme", Country: "US"})
	require.NoError(t, err)
	assert.Zero(t, reg.searches)
	assert.Zero(t, reg.lookups)
}

func TestScreenCompanyNewsFailureDegrades(t *testing.T) {
	n := &fakeNews{err: errors.New("all providers failed")}
	s := newTestScreener(t, &fakeRegistry{}, n, &fakeModel{enabled: true}, &fakeWatchlist{})

	rep, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme"})
	require.NoError(t, err, "screening proceeds on partial data")

	require.Len(t, rep.Meta.Warnings, 1)
	assert.Contains(t, rep.Meta.Warnings[0], "news search failed")
	assert.NotContains(t, rep.Meta.Sources, "web")
	assert.Empty(t, rep.AdverseMedia.Items)
}

func TestScreenCompanyModelUnavailable(t *testing.T) {
	m := &fakeModel{enabled: true, err: summarize.ErrUnavailable}
	s := newTestScreener(t, &fakeRegistry{}, &fakeNews{items: sampleNews()}, m, &fakeWatchlist{})

	rep, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme"})
	require.NoError(t, err)

	require.Len(t, rep.Meta.Warnings, 1)
	assert.Contains(t, rep.Meta.Warnings[0], "ai analysis unavailable")
	assert.Empty(t, rep.AdverseMedia.Summary)
	assert.Equal(t, []string{"web"}, rep.Meta.Sources)
	assert.Len(t, rep.AdverseMedia.Items, 2, "raw articles still reported")
}

func TestScreenCompanyRegistryFailureDegrades(t *testing.T) {
	reg := &fakeRegistry{enabled: true, lookupErr: registry.ErrNotFound}
	s := newTestScreener(t, reg, &fakeNews{items: sampleNews()}, &fakeModel{}, &fakeWatchlist{})

	rep, err := s.ScreenCompany(context.Background(), CompanyRequest{Company: "Acme", RegistryID: "99999999"})
	require.NoError(t, err)
	require.Len(t, rep.Meta.Warnings, 1)
	assert.Contains(t, rep.Meta.Warnings[0], "registry lookup failed")
	assert.NotContains(t, rep.Meta.Sources, "dart")
}

func watchlistResult() sanctions.Result {
	return sanctions.Result{
		Name:      "Kim Jong Il",
		TotalHits: 2,
		Sanctions: sanctions.Group{TotalHits: 1, Records: []report.Record{{
			"source_type": "SANCTION",
			"source_id":   "us_ofac_sdn",
			"name":        "KIM JONG IL",
			"date":        "2006-10-14",
			"source_url":  "https://sanctions.example/1",
			"alias_names": []any{"KIM JONG-IL"},
		}}},
		PEP: sanctions.Group{TotalHits: 1, Records: []report.Record{{
			"source_type": "PEP",
			"source_id":   "dilisense_pep",
			"name":        "KIM JONG IL",
			"position":    "Head of State",
			"alias_names": []any{"DEAR LEADER"},
		}}},
		Criminal:    sanctions.Group{Records: []report.Record{}},
		Other:       sanctions.Group{Records: []report.Record{}},
		RiskLevel:   sanctions.RiskHigh,
		RiskFactors: []string{"Sanctions listed", "PEP status"},
	}
}

func TestScreenIndividual(t *testing.T) {
	w := &fakeWatchlist{enabled: true, result: watchlistResult()}
	n := &fakeNews{items: []report.Record{
		{"title": "Sanctions tightened", "url": "https://n/1", "source": "www.reuters.com", "publishedAt": "2024-01-01T00:00:00Z"},
		{"title": "Regime finances probed", "url": "https://n/2", "source": "www.bbc.com"},
	}}
	s := newTestScreener(t, &fakeRegistry{}, n, &fakeModel{}, w)

	rep, err := s.ScreenIndividual(context.Background(), IndividualRequest{
		Name:        "Kim Jong Il",
		Country:     "KP",
		DateOfBirth: "1941-02-16",
	})
	require.NoError(t, err)

	assert.Equal(t, "Kim Jong Il", rep.Name)
	assert.Equal(t, "standard", rep.ScreeningLevel)
	assert.Equal(t, "High", rep.OverallRiskLevel)
	assert.True(t, rep.PEPStatus)
	require.NotNil(t, rep.PEPDetails)
	assert.Equal(t, "Head of State", rep.PEPDetails.Position)
	assert.Equal(t, "KP", rep.PEPDetails.Country)
	assert.Equal(t, "dilisense_pep", rep.PEPDetails.Source)

	require.Len(t, rep.Sanctions, 1)
	assert.Equal(t, "us_ofac_sdn", rep.Sanctions[0].ListName)
	assert.Equal(t, "KIM JONG IL", rep.Sanctions[0].EntityName)
	assert.Equal(t, "2006-10-14", rep.Sanctions[0].Date)
	assert.Equal(t, "https://sanctions.example/1", rep.Sanctions[0].SourceURL)

	require.Len(t, rep.AdverseMedia, 2)
	assert.Equal(t, "Sanctions tightened", rep.AdverseMedia[0].Title)
	assert.Equal(t, "2024-01-01T00:00:00Z", rep.AdverseMedia[0].Date)
	assert.Len(t, rep.Citations, 2)

	assert.ElementsMatch(t, []string{"KIM JONG-IL", "DEAR LEADER"}, rep.Aliases)
	assert.Equal(t, []string{"Sanctions listed", "PEP status"}, rep.RiskFactors)

	assert.InDelta(t, 0.85, rep.Metrics.OverallRisk, 1e-9)
	assert.InDelta(t, 0.3, rep.Metrics.Sanctions, 1e-9)
	assert.InDelta(t, 0.6, rep.Metrics.PEP, 1e-9)
	assert.InDelta(t, 0.2, rep.Metrics.AdverseMedia, 1e-9)
	assert.Equal(t, 2, rep.Metrics.Matches)
	assert.Equal(t, 4, rep.Metrics.Alerts, "1 sanction + 2 articles + PEP")

	assert.Contains(t, rep.ExecutiveSummary, "Individual screening completed for Kim Jong Il")
	assert.Contains(t, rep.ExecutiveSummary, "risk level is high")
	assert.Contains(t, rep.ExecutiveSummary, "PEP status identified")
	assert.NotEmpty(t, rep.Timestamp)
	assert.Empty(t, rep.Warnings)
}

func TestScreenIndividualModelNarrativeWins(t *testing.T) {
	m := &fakeModel{enabled: true, analysis: summarize.IndividualAnalysis{
		ExecutiveSummary: "Model summary.",
		RiskAssessment:   "Model assessment.",
	}}
	s := newTestScreener(t, &fakeRegistry{}, &fakeNews{}, m, &fakeWatchlist{enabled: true})

	rep, err := s.ScreenIndividual(context.Background(), IndividualRequest{Name: "John Smith"})
	require.NoError(t, err)
	assert.Equal(t, "Model summary.", rep.ExecutiveSummary)
	assert.Equal(t, "Model assessment.", rep.RiskAssessment)
}

func TestScreenIndividualWatchlistFailureDegrades(t *testing.T) {
	w := &fakeWatchlist{enabled: true, err: errors.New("dilisense: status 500")}
	s := newTestScreener(t, &fakeRegistry{}, &fakeNews{}, &fakeModel{}, w)

	rep, err := s.ScreenIndividual(context.Background(), IndividualRequest{Name: "John Smith"})
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "watchlist screening failed")
	assert.Equal(t, "Low", rep.OverallRiskLevel)
}

func TestScreenIndividualMemoized(t *testing.T) {
	w := &fakeWatchlist{enabled: true}
	n := &fakeNews{}
	s := newTestScreener(t, &fakeRegistry{}, n, &fakeModel{}, w)
	req := IndividualRequest{Name: "John Smith", Country: "GB"}

	_, err := s.ScreenIndividual(context.Background(), req)
	require.NoError(t, err)
	_, err = s.ScreenIndividual(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, 1, n.calls)
}

func TestRegistryOperationsMemoized(t *testing.T) {
	reg := &fakeRegistry{
		enabled:    true,
		candidates: []registry.Candidate{{Name: "삼성전자", CorpCode: "00126380"}},
		profile:    &registry.Profile{CorpCode: "00126380"},
	}
	s := newTestScreener(t, reg, &fakeNews{}, &fakeModel{}, &fakeWatchlist{})

	for i := 0; i < 2; i++ {
		got, err := s.RegistrySearch(context.Background(), "samsung")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, reg.searches)

	_, err := s.RegistrySearch(context.Background(), "  Samsung ")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.searches, "search keys normalize whitespace and case")

	for i := 0; i < 2; i++ {
		p, err := s.RegistryLookup(context.Background(), "00126380")
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	assert.Equal(t, 1, reg.lookups)
}

func TestKoreanCompanyHeuristic(t *testing.T) {
	assert.True(t, koreanCompany(CompanyRequest{Company: "Acme", Country: "KR"}))
	assert.True(t, koreanCompany(CompanyRequest{Company: "Acme", Country: "south korea"}))
	assert.True(t, koreanCompany(CompanyRequest{Company: "현대자동차"}))
	assert.False(t, koreanCompany(CompanyRequest{Company: "Acme", Country: "US"}))
	assert.False(t, koreanCompany(CompanyRequest{Company: "Acme"}))
}
