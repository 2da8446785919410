// Package sanctions screens individuals against watchlists through the
// Dilisense API: sanctions, PEP, criminal and adverse-media sources.
package sanctions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
	"github.com/laithharzallah/Laithstool-sub001/internal/report"
)

// Provider is the rate-limiter bucket name for Dilisense.
const Provider = "dilisense"

// ErrRateLimited reports a screening denied by the local rate limiter.
var ErrRateLimited = errors.New("sanctions: rate limit exceeded")

const (
	maxVariations      = 5
	maxRecordsPerGroup = 10

	includesParam = "dilisense_pep,dilisense_sanctions,dilisense_criminal,dilisense_adverse_media"
)

// Risk levels assigned to a screening result.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Group holds the hits of one watchlist category.
type Group struct {
	TotalHits int             `json:"total_hits"`
	Records   []report.Record `json:"found_records"`
}

// Result is a merged individual screening across name variations.
type Result struct {
	Name            string   `json:"name"`
	Country         string   `json:"country,omitempty"`
	DateOfBirth     string   `json:"date_of_birth,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	TotalHits       int      `json:"total_hits"`
	Sanctions       Group    `json:"sanctions"`
	PEP             Group    `json:"pep"`
	Criminal        Group    `json:"criminal"`
	Other           Group    `json:"other"`
	RiskLevel       string   `json:"overall_risk_level"`
	RiskFactors     []string `json:"risk_factors"`
	VariationsTried []string `json:"name_variations_tried,omitempty"`
	BestVariation   string   `json:"best_variation,omitempty"`
}

// Query identifies the individual to screen. Only Name is required.
type Query struct {
	Name        string
	Country     string
	DateOfBirth string
	Gender      string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Limiter    *ratelimit.Registry
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	baseURL string
	limiter *ratelimit.Registry
	logger  *slog.Logger
	http    *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.dilisense.com/v1"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: cfg.Limiter,
		logger:  cfg.Logger.With("component", "sanctions"),
		http:    cfg.HTTPClient,
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

// ScreenIndividual checks the name and up to four variations of it
// against the watchlists and merges the relevant hits. Without an API
// key it returns a clean result so composite screenings can proceed.
// One screening charges one rate-limit token regardless of how many
// variations it tries.
func (c *Client) ScreenIndividual(ctx context.Context, q Query) (Result, error) {
	if !c.Enabled() {
		return emptyResult(q), nil
	}
	if c.limiter != nil && !c.limiter.Allow(Provider) {
		return Result{}, ErrRateLimited
	}

	variations := nameVariations(q.Name)
	type hit struct {
		variation string
		resp      checkResponse
	}
	var hits []hit
	var failures []error
	for _, v := range variations {
		resp, err := c.checkIndividual(ctx, v, q)
		if err != nil {
			c.logger.Warn("watchlist check failed", "variation", v, "error", err)
			failures = append(failures, err)
			continue
		}
		hits = append(hits, hit{variation: v, resp: resp})
	}
	if len(hits) == 0 {
		if len(failures) > 0 {
			return Result{}, fmt.Errorf("sanctions: all lookups failed: %w", errors.Join(failures...))
		}
		return emptyResult(q), nil
	}

	out := emptyResult(q)
	first, last := nameParts(q.Name)
	seen := make(map[string]struct{})
	bestHits := -1
	for _, h := range hits {
		out.VariationsTried = append(out.VariationsTried, h.variation)
		if h.resp.TotalHits > bestHits {
			bestHits = h.resp.TotalHits
			out.BestVariation = h.variation
		}
		for _, rec := range h.resp.FoundRecords {
			if !relevantMatch(rec, first, last) {
				continue
			}
			group, prefix := out.group(stringVal(rec["source_type"]))
			key := fmt.Sprintf("%s_%s_%v", prefix, stringVal(rec["name"]), rec["source_id"])
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			group.Records = append(group.Records, rec)
		}
	}
	for _, g := range []*Group{&out.Sanctions, &out.PEP, &out.Criminal, &out.Other} {
		if len(g.Records) > maxRecordsPerGroup {
			g.Records = g.Records[:maxRecordsPerGroup]
		}
		g.TotalHits = len(g.Records)
		out.TotalHits += g.TotalHits
	}
	out.RiskLevel, out.RiskFactors = assessRisk(out)
	c.logger.Info("individual screened",
		"name", q.Name, "variations", len(out.VariationsTried), "total_hits", out.TotalHits, "risk", out.RiskLevel)
	return out, nil
}

type checkResponse struct {
	TotalHits    int             `json:"total_hits"`
	FoundRecords []report.Record `json:"found_records"`
}

func (c *Client) checkIndividual(ctx context.Context, name string, q Query) (checkResponse, error) {
	params := url.Values{}
	params.Set("names", name)
	params.Set("fuzzy_search", "1")
	params.Set("fuzzy_threshold", "0.7")
	params.Set("includes", includesParam)
	if q.Country != "" {
		params.Set("country", q.Country)
	}
	if q.DateOfBirth != "" {
		params.Set("dob", q.DateOfBirth)
	}
	if q.Gender != "" {
		params.Set("gender", q.Gender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/checkIndividual?"+params.Encode(), nil)
	if err != nil {
		return checkResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return checkResponse{}, fmt.Errorf("dilisense: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return checkResponse{}, fmt.Errorf("dilisense: status %d", resp.StatusCode)
	}
	var parsed checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return checkResponse{}, fmt.Errorf("dilisense: decode: %w", err)
	}
	return parsed, nil
}

// group routes a source_type to its category. Unknown types land in
// Other, which covers adverse media.
func (r *Result) group(sourceType string) (*Group, string) {
	switch strings.ToUpper(sourceType) {
	case "SANCTION":
		return &r.Sanctions, "s"
	case "PEP":
		return &r.PEP, "p"
	case "CRIMINAL":
		return &r.Criminal, "c"
	default:
		return &r.Other, "o"
	}
}

func emptyResult(q Query) Result {
	return Result{
		Name:        q.Name,
		Country:     q.Country,
		DateOfBirth: q.DateOfBirth,
		Gender:      q.Gender,
		Sanctions:   Group{Records: []report.Record{}},
		PEP:         Group{Records: []report.Record{}},
		Criminal:    Group{Records: []report.Record{}},
		Other:       Group{Records: []report.Record{}},
		RiskLevel:   RiskLow,
		RiskFactors: []string{},
	}
}

// assessRisk grades the merged result: sanctions or criminal hits are
// High, PEP-only is Medium, anything else Low.
func assessRisk(r Result) (level string, factors []string) {
	factors = []string{}
	if r.Sanctions.TotalHits > 0 {
		factors = append(factors, "Sanctions listed")
	}
	if r.PEP.TotalHits > 0 {
		factors = append(factors, "PEP status")
	}
	if r.Criminal.TotalHits > 0 {
		factors = append(factors, "Criminal records")
	}
	if r.Other.TotalHits > 0 {
		factors = append(factors, "Other adverse records")
	}
	switch {
	case r.Sanctions.TotalHits > 0 || r.Criminal.TotalHits > 0:
		return RiskHigh, factors
	case r.PEP.TotalHits > 0:
		return RiskMedium, factors
	default:
		return RiskLow, factors
	}
}

// honorifics stripped from the front of a name before building
// variations.
var honorifics = []string{"MR ", "DR ", "PROF ", "SHEIKH ", "HIS EXCELLENCY ", "HONORABLE "}

// nameVariations expands a full name into the forms tried against the
// watchlists: the original, first+last, reversed, and the full name
// without middle parts. Capped at 5, original first, shortest next.
func nameVariations(name string) []string {
	candidates := []string{name}
	clean := strings.ToUpper(strings.TrimSpace(name))
	for _, title := range honorifics {
		if strings.HasPrefix(clean, title) {
			clean = strings.TrimPrefix(clean, title)
			break
		}
	}
	parts := strings.Fields(clean)
	switch {
	case len(parts) >= 3:
		first, middle, last := parts[0], parts[1], parts[len(parts)-1]
		candidates = append(candidates,
			first+" "+last,
			last+" "+first,
			first+" "+middle+" "+last,
		)
	case len(parts) == 2:
		candidates = append(candidates,
			parts[0]+" "+parts[1],
			parts[1]+" "+parts[0],
		)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, v := range candidates {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i] == name, out[j] == name
		if oi != oj {
			return oi
		}
		return len(out[i]) < len(out[j])
	})
	if len(out) > maxVariations {
		out = out[:maxVariations]
	}
	return out
}

func nameParts(name string) (first, last string) {
	parts := strings.Fields(strings.ToUpper(name))
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], parts[len(parts)-1]
}

// relevantMatch keeps only records naming the screened person: the
// record name or one of its aliases must contain the first or last
// name. Fuzzy search casts a wide net; this reins it back in.
func relevantMatch(rec report.Record, first, last string) bool {
	name := strings.ToUpper(stringVal(rec["name"]))
	if first != "" && strings.Contains(name, first) {
		return true
	}
	if last != "" && strings.Contains(name, last) {
		return true
	}
	aliases, _ := rec["alias_names"].([]any)
	for _, a := range aliases {
		alias := strings.ToUpper(stringVal(a))
		if first != "" && strings.Contains(alias, first) {
			return true
		}
		if last != "" && strings.Contains(alias, last) {
			return true
		}
	}
	return false
}

func stringVal(v any) string {
	s, _ := v.(string)
	return s
}
