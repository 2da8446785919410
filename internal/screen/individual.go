package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/laithharzallah/Laithstool-sub001/internal/cache"
	"github.com/laithharzallah/Laithstool-sub001/internal/report"
	"github.com/laithharzallah/Laithstool-sub001/internal/sanctions"
	"github.com/laithharzallah/Laithstool-sub001/internal/summarize"
)

// PEPDetails describes a politically exposed person's position.
type PEPDetails struct {
	Position string `json:"position"`
	Country  string `json:"country,omitempty"`
	Since    string `json:"since,omitempty"`
	Source   string `json:"source"`
}

// SanctionHit is one watchlist listing in an individual report.
type SanctionHit struct {
	ListName   string `json:"list_name"`
	EntityName string `json:"entity_name"`
	Date       string `json:"date,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

// MediaHit is one adverse-media article in an individual report.
type MediaHit struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Citation points at a source consulted during the screening.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Metrics are the numeric risk signals of an individual screening.
type Metrics struct {
	OverallRisk  float64 `json:"overall_risk"`
	Sanctions    float64 `json:"sanctions"`
	PEP          float64 `json:"pep"`
	AdverseMedia float64 `json:"adverse_media"`
	Matches      int     `json:"matches"`
	Alerts       int     `json:"alerts"`
}

// IndividualReport is the result of an individual screening.
type IndividualReport struct {
	Name             string        `json:"name"`
	Country          string        `json:"country,omitempty"`
	DateOfBirth      string        `json:"date_of_birth,omitempty"`
	ScreeningLevel   string        `json:"screening_level"`
	Timestamp        string        `json:"timestamp"`
	OverallRiskLevel string        `json:"overall_risk_level"`
	ExecutiveSummary string        `json:"executive_summary"`
	Aliases          []string      `json:"aliases"`
	PEPStatus        bool          `json:"pep_status"`
	PEPDetails       *PEPDetails   `json:"pep_details"`
	Sanctions        []SanctionHit `json:"sanctions"`
	AdverseMedia     []MediaHit    `json:"adverse_media"`
	Citations        []Citation    `json:"citations"`
	RiskAssessment   string        `json:"risk_assessment"`
	RiskFactors      []string      `json:"risk_factors"`
	Metrics          Metrics       `json:"metrics"`
	Warnings         []string      `json:"warnings,omitempty"`
}

const (
	maxAliases   = 10
	maxCitations = 10
)

// ScreenIndividual produces an individual report, served from cache
// when a matching screening is still fresh.
func (s *Screener) ScreenIndividual(ctx context.Context, req IndividualRequest) (IndividualReport, error) {
	return cache.Cached(ctx, s.memo, OpIndividual, func(ctx context.Context) (IndividualReport, error) {
		return s.screenIndividual(ctx, req)
	},
		req.Name,
		cache.KV{Name: "country", Value: req.Country},
		cache.KV{Name: "dob", Value: req.DateOfBirth},
		cache.KV{Name: "level", Value: req.Level},
	)
}

func (s *Screener) screenIndividual(ctx context.Context, req IndividualRequest) (IndividualReport, error) {
	var (
		mu       sync.Mutex
		warnings []string
		watch    sanctions.Result
		articles []report.Record
	)
	warn := func(format string, args ...any) {
		mu.Lock()
		warnings = append(warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	var wg sync.WaitGroup
	if s.watchlist != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.watchlist.ScreenIndividual(ctx, sanctions.Query{
				Name:        req.Name,
				Country:     req.Country,
				DateOfBirth: req.DateOfBirth,
				Gender:      req.Gender,
			})
			if err != nil {
				warn("watchlist screening failed: %v", err)
				return
			}
			mu.Lock()
			watch = res
			mu.Unlock()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		items, err := s.news.Search(ctx, adverseQuery(req.Name), 0)
		if err != nil {
			warn("news search failed: %v", err)
			return
		}
		mu.Lock()
		articles = items
		mu.Unlock()
	}()

	wg.Wait()
	if ctx.Err() != nil {
		return IndividualReport{}, ctx.Err()
	}

	out := buildIndividualReport(req, watch, articles)

	var analysis summarize.IndividualAnalysis
	if s.model != nil && s.model.Enabled() {
		var err error
		analysis, err = s.model.AnalyzeIndividual(ctx, summarize.IndividualFindings{
			Name:      req.Name,
			Country:   req.Country,
			Sanctions: listNames(watch.Sanctions),
			PEP:       listNames(watch.PEP),
			Criminal:  listNames(watch.Criminal),
			News:      articles,
		})
		if err != nil {
			warn("ai analysis unavailable: %v", err)
		}
	}
	if analysis.ExecutiveSummary != "" {
		out.ExecutiveSummary = analysis.ExecutiveSummary
	}
	if analysis.RiskAssessment != "" {
		out.RiskAssessment = analysis.RiskAssessment
	}
	out.Warnings = warnings

	s.logger.Info("individual screened",
		"name", req.Name, "risk", out.OverallRiskLevel,
		"sanctions", len(out.Sanctions), "adverse_media", len(out.AdverseMedia))
	return out, nil
}

// buildIndividualReport maps the raw watchlist result and articles
// into the report shape, with templated summary text that the model
// analysis replaces when available.
func buildIndividualReport(req IndividualRequest, watch sanctions.Result, articles []report.Record) IndividualReport {
	level := req.Level
	if level == "" {
		level = "standard"
	}

	hits := make([]SanctionHit, 0, len(watch.Sanctions.Records)+len(watch.Criminal.Records))
	for _, group := range []sanctions.Group{watch.Sanctions, watch.Criminal} {
		for _, rec := range group.Records {
			hits = append(hits, SanctionHit{
				ListName:   recStr(rec, "source_id", "list_name"),
				EntityName: recStr(rec, "name", "entity_name"),
				Date:       recStr(rec, "date", "listed_on"),
				SourceURL:  recStr(rec, "source_url", "url"),
			})
		}
	}

	pepStatus := watch.PEP.TotalHits > 0
	var pepDetails *PEPDetails
	if len(watch.PEP.Records) > 0 {
		rec := watch.PEP.Records[0]
		source := recStr(rec, "source_id", "source")
		if source == "" {
			source = "Dilisense"
		}
		pepDetails = &PEPDetails{
			Position: pepPosition(rec),
			Country:  req.Country,
			Since:    recStr(rec, "since"),
			Source:   source,
		}
	}

	media := make([]MediaHit, 0, len(articles))
	citations := make([]Citation, 0, len(articles))
	for _, a := range articles {
		media = append(media, MediaHit{
			Title:  recStr(a, "title"),
			Source: recStr(a, "source"),
			Date:   recStr(a, "publishedAt", "date"),
			URL:    recStr(a, "url"),
		})
		if len(citations) < maxCitations {
			citations = append(citations, Citation{
				Title: recStr(a, "title"),
				URL:   recStr(a, "url"),
			})
		}
	}

	riskLevel := watch.RiskLevel
	if riskLevel == "" {
		riskLevel = sanctions.RiskLow
	}
	factors := watch.RiskFactors
	if factors == nil {
		factors = []string{}
	}

	pepClause := "no PEP status"
	if pepStatus {
		pepClause = "PEP status identified"
	}
	summary := fmt.Sprintf(
		"Individual screening completed for %s. The overall risk level is %s. Found %d sanctions, %d adverse media items, and %s.",
		req.Name, strings.ToLower(riskLevel), len(hits), len(media), pepClause)
	assessment := fmt.Sprintf(
		"Based on our analysis, %s presents a %s risk profile. This assessment covers sanctions screening, adverse media analysis, and PEP status.",
		req.Name, strings.ToLower(riskLevel))

	return IndividualReport{
		Name:             req.Name,
		Country:          req.Country,
		DateOfBirth:      req.DateOfBirth,
		ScreeningLevel:   level,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		OverallRiskLevel: riskLevel,
		ExecutiveSummary: summary,
		Aliases:          collectAliases(watch),
		PEPStatus:        pepStatus,
		PEPDetails:       pepDetails,
		Sanctions:        hits,
		AdverseMedia:     media,
		Citations:        citations,
		RiskAssessment:   assessment,
		RiskFactors:      factors,
		Metrics:          deriveMetrics(watch, pepStatus, len(hits), len(media)),
	}
}

// deriveMetrics grades the findings on 0..1 scales. The counts drive
// everything; no scoring model is consulted.
func deriveMetrics(watch sanctions.Result, pep bool, sanctionCount, mediaCount int) Metrics {
	overall := 0.2
	switch watch.RiskLevel {
	case sanctions.RiskMedium:
		overall = 0.5
	case sanctions.RiskHigh:
		overall = 0.85
	}
	m := Metrics{
		OverallRisk:  overall,
		Sanctions:    capScore(0.3*float64(sanctionCount), 0.9),
		AdverseMedia: capScore(0.1*float64(mediaCount), 0.7),
		Matches:      watch.TotalHits,
		Alerts:       sanctionCount + mediaCount,
	}
	if pep {
		m.PEP = 0.6
		m.Alerts++
	}
	return m
}

func capScore(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

func collectAliases(watch sanctions.Result) []string {
	seen := make(map[string]struct{})
	aliases := []string{}
	for _, group := range []sanctions.Group{watch.Sanctions, watch.PEP, watch.Criminal} {
		for _, rec := range group.Records {
			list, _ := rec["alias_names"].([]any)
			for _, a := range list {
				alias, _ := a.(string)
				if alias == "" {
					continue
				}
				if _, dup := seen[alias]; dup {
					continue
				}
				seen[alias] = struct{}{}
				aliases = append(aliases, alias)
				if len(aliases) >= maxAliases {
					return aliases
				}
			}
		}
	}
	return aliases
}

func listNames(g sanctions.Group) []string {
	names := make([]string, 0, len(g.Records))
	for _, rec := range g.Records {
		if n := recStr(rec, "source_id", "name"); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// pepPosition reads the position from a PEP record, accepting either a
// scalar field or the first entry of a positions list.
func pepPosition(rec report.Record) string {
	if p := recStr(rec, "position"); p != "" {
		return p
	}
	if list, ok := rec["positions"].([]any); ok && len(list) > 0 {
		if p, ok := list[0].(string); ok {
			return p
		}
	}
	return ""
}

// recStr returns the first non-empty string among the record keys.
func recStr(rec report.Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
