// Package screen orchestrates due-diligence screenings: it fans out to
// the registry, news, watchlist and model clients, memoizes finished
// reports, and tracks long-running screenings as tasks.
package screen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/laithharzallah/Laithstool-sub001/internal/cache"
	"github.com/laithharzallah/Laithstool-sub001/internal/news"
	"github.com/laithharzallah/Laithstool-sub001/internal/registry"
	"github.com/laithharzallah/Laithstool-sub001/internal/report"
	"github.com/laithharzallah/Laithstool-sub001/internal/sanctions"
	"github.com/laithharzallah/Laithstool-sub001/internal/summarize"
)

// Memoization operation names. TTL policy is keyed by these.
const (
	OpCompany        = "company_screening"
	OpIndividual     = "individual_screening"
	OpRegistryLookup = "dart_lookup"
	OpRegistrySearch = "dart_search"
)

// RegistryClient is the corporate-registry surface the screener needs.
type RegistryClient interface {
	Enabled() bool
	Search(ctx context.Context, name string) ([]registry.Candidate, error)
	Lookup(ctx context.Context, corpCode string) (*registry.Profile, error)
}

// NewsProvider searches adverse-media coverage.
type NewsProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]report.Record, error)
}

// Summarizer is the model client used for digests and risk analysis.
type Summarizer interface {
	Enabled() bool
	SummarizeNews(ctx context.Context, company string, items []report.Record) (summarize.NewsDigest, error)
	AnalyzeIndividual(ctx context.Context, f summarize.IndividualFindings) (summarize.IndividualAnalysis, error)
}

// WatchlistScreener checks individuals against sanctions lists.
type WatchlistScreener interface {
	Enabled() bool
	ScreenIndividual(ctx context.Context, q sanctions.Query) (sanctions.Result, error)
}

// CompanyRequest asks for a company screening. RegistryID is an
// optional DART corp code; without it Korean companies are resolved
// through registry search.
type CompanyRequest struct {
	Company    string
	Country    string
	Domain     string
	Level      string
	RegistryID string
}

// IndividualRequest asks for an individual screening.
type IndividualRequest struct {
	Name        string
	Country     string
	DateOfBirth string
	Gender      string
	Level       string
}

type Config struct {
	Memo      *cache.Memo
	Registry  RegistryClient
	News      NewsProvider
	Model     Summarizer
	Watchlist WatchlistScreener
	Logger    *slog.Logger
}

// Screener runs screenings against the configured providers. Every
// public operation is memoized through the cache wrapper, so repeated
// requests inside the TTL window serve the stored report.
type Screener struct {
	memo      *cache.Memo
	registry  RegistryClient
	news      NewsProvider
	model     Summarizer
	watchlist WatchlistScreener
	logger    *slog.Logger
}

func New(cfg Config) *Screener {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Screener{
		memo:      cfg.Memo,
		registry:  cfg.Registry,
		news:      cfg.News,
		model:     cfg.Model,
		watchlist: cfg.Watchlist,
		logger:    cfg.Logger.With("component", "screen"),
	}
}

// FeatureFlags reports which providers are live, for report metadata
// and the health endpoint. News is always on: the RSS provider needs
// no key.
func (s *Screener) FeatureFlags() map[string]bool {
	return map[string]bool{
		"registry":  s.registry != nil && s.registry.Enabled(),
		"news":      s.news != nil,
		"ai":        s.model != nil && s.model.Enabled(),
		"sanctions": s.watchlist != nil && s.watchlist.Enabled(),
	}
}

// ScreenCompany produces a company report, served from cache when a
// matching screening is still fresh.
func (s *Screener) ScreenCompany(ctx context.Context, req CompanyRequest) (report.Report, error) {
	return s.screenCompanyTracked(ctx, req, nopTracker{})
}

func (s *Screener) screenCompanyTracked(ctx context.Context, req CompanyRequest, tr tracker) (report.Report, error) {
	computed := false
	out, err := cache.Cached(ctx, s.memo, OpCompany, func(ctx context.Context) (report.Report, error) {
		computed = true
		return s.screenCompany(ctx, req, tr)
	},
		req.Company,
		cache.KV{Name: "country", Value: req.Country},
		cache.KV{Name: "level", Value: req.Level},
		cache.KV{Name: "registry_id", Value: req.RegistryID},
	)
	if err != nil {
		return report.Report{}, err
	}
	if !computed {
		out.Meta.CacheHit = true
	}
	return out, nil
}

// screenCompany is the miss path: collect, classify, normalize.
// Provider failures degrade to warnings so a partial report still
// ships; only context cancellation aborts the screening.
func (s *Screener) screenCompany(ctx context.Context, req CompanyRequest, tr tracker) (report.Report, error) {
	var (
		mu       sync.Mutex
		warnings []string
		profile  *registry.Profile
		rawNews  []report.Record
		newsErr  error
	)
	warn := func(format string, args ...any) {
		mu.Lock()
		warnings = append(warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	var wg sync.WaitGroup

	useRegistry := s.registry != nil && s.registry.Enabled() &&
		(req.RegistryID != "" || koreanCompany(req))
	if useRegistry {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.start(StepRegistryLookup, "Querying corporate registry")
			p, err := s.lookupCompanyProfile(ctx, req)
			if err != nil {
				warn("registry lookup failed: %v", err)
				tr.complete(StepRegistryLookup, "Registry lookup failed")
				return
			}
			mu.Lock()
			profile = p
			mu.Unlock()
			tr.complete(StepRegistryLookup, "Registry profile retrieved")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		tr.start(StepWebSearch, "Searching news coverage")
		items, err := s.news.Search(ctx, adverseQuery(req.Company), 0)
		mu.Lock()
		rawNews, newsErr = items, err
		mu.Unlock()
		if err != nil {
			warn("news search failed: %v", err)
			tr.complete(StepWebSearch, "News search failed")
			return
		}
		tr.complete(StepWebSearch, fmt.Sprintf("Found %d articles", len(items)))
	}()

	wg.Wait()
	if ctx.Err() != nil {
		return report.Report{}, ctx.Err()
	}

	tr.start(StepAIAnalysis, "Classifying coverage")
	var digest summarize.NewsDigest
	aiUsed := false
	if s.model != nil && s.model.Enabled() {
		var err error
		digest, err = s.model.SummarizeNews(ctx, req.Company, rawNews)
		if err != nil {
			warn("ai analysis unavailable: %v", err)
		} else {
			aiUsed = true
		}
	}
	tr.complete(StepAIAnalysis, "Analysis done")

	tr.start(StepReportGeneration, "Compiling report")
	executives := news.ExtractExecutives(rawNews)
	if profile != nil && profile.CEOName != "" {
		executives = append([]report.Record{{
			"name":     profile.CEOName,
			"position": "CEO",
			"source":   registry.Provider,
		}}, executives...)
	}

	var sources []string
	if profile != nil {
		sources = append(sources, registry.Provider)
	}
	if newsErr == nil {
		sources = append(sources, "web")
	}
	if aiUsed {
		sources = append(sources, "openai")
	}

	website := req.Domain
	if website == "" && profile != nil {
		website = profile.HomepageURL
	}

	rep := report.Normalize(report.Input{
		Name:         req.Company,
		Country:      req.Country,
		Website:      website,
		Executives:   executives,
		News:         report.MergeNews(rawNews, digest.Items),
		NewsSummary:  digest.Summary,
		Sources:      sources,
		Warnings:     warnings,
		FeatureFlags: s.FeatureFlags(),
	})
	if profile != nil {
		rep.Company.Identifiers.Other["dart_corp_code"] = profile.CorpCode
		if profile.StockCode != "" {
			rep.Company.Identifiers.Other["stock_code"] = profile.StockCode
		}
	}
	tr.complete(StepReportGeneration, "Report ready")
	s.logger.Info("company screened",
		"company", req.Company, "news", len(rep.AdverseMedia.Items),
		"executives", len(rep.Executives), "warnings", len(warnings))
	return rep, nil
}

// lookupCompanyProfile resolves a registry profile from an explicit
// corp code or, failing that, the best search match for the name.
func (s *Screener) lookupCompanyProfile(ctx context.Context, req CompanyRequest) (*registry.Profile, error) {
	code := req.RegistryID
	if code == "" {
		candidates, err := s.registry.Search(ctx, req.Company)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("no registry match for %q", req.Company)
		}
		code = candidates[0].CorpCode
	}
	return s.registry.Lookup(ctx, code)
}

// RegistrySearch lists registry candidates for a company name,
// memoized under the dart_search TTL.
func (s *Screener) RegistrySearch(ctx context.Context, name string) ([]registry.Candidate, error) {
	return cache.Cached(ctx, s.memo, OpRegistrySearch, func(ctx context.Context) ([]registry.Candidate, error) {
		return s.registry.Search(ctx, name)
	}, strings.ToLower(strings.TrimSpace(name)))
}

// RegistryLookup fetches a registry profile by corp code, memoized
// under the dart_lookup TTL.
func (s *Screener) RegistryLookup(ctx context.Context, corpCode string) (*registry.Profile, error) {
	return cache.Cached(ctx, s.memo, OpRegistryLookup, func(ctx context.Context) (*registry.Profile, error) {
		return s.registry.Lookup(ctx, corpCode)
	}, corpCode)
}

func adverseQuery(company string) string {
	return company + " controversy OR lawsuit OR sanctions OR fraud OR investigation"
}

// koreanCompany decides whether the registry is worth consulting:
// explicitly Korean jurisdictions, or a name containing Hangul.
func koreanCompany(req CompanyRequest) bool {
	switch strings.ToUpper(strings.TrimSpace(req.Country)) {
	case "KR", "KOR", "KOREA", "SOUTH KOREA", "REPUBLIC OF KOREA":
		return true
	}
	for _, r := range req.Company {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
