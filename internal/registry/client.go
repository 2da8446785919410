package registry

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/laithharzallah/Laithstool-sub001/internal/ratelimit"
)

// Provider is the rate-limiter bucket name for DART calls.
const Provider = "dart"

// Result cap for searches.
const maxResults = 5

var (
	// ErrNoCredentials marks a client constructed without an API key.
	ErrNoCredentials = errors.New("registry: DART_API_KEY not configured")
	// ErrNotFound reports DART status 013 (no data for the corp code).
	ErrNotFound = errors.New("registry: company not found")
	// ErrRateLimited reports a locally throttled call.
	ErrRateLimited = errors.New("registry: rate limited")
)

// Candidate is one search match. MatchType is "exact" or "partial".
type Candidate struct {
	Name       string `json:"name"`
	NameEng    string `json:"name_eng"`
	CorpCode   string `json:"corp_code"`
	StockCode  string `json:"stock_code"`
	Country    string `json:"country"`
	Source     string `json:"source"`
	EntityType string `json:"entity_type"`
	MatchType  string `json:"match_type"`
}

// Profile is a company record from DART's company.json endpoint, field
// names per the upstream API.
type Profile struct {
	CorpCode        string `json:"corp_code"`
	Name            string `json:"corp_name"`
	NameEng         string `json:"corp_name_eng"`
	StockName       string `json:"stock_name"`
	StockCode       string `json:"stock_code"`
	CEOName         string `json:"ceo_nm"`
	CorpClass       string `json:"corp_cls"`
	Address         string `json:"adres"`
	HomepageURL     string `json:"hm_url"`
	PhoneNumber     string `json:"phn_no"`
	IndustryCode    string `json:"induty_code"`
	EstablishedDate string `json:"est_dt"`
}

// Config configures a Client. Zero-value BaseURL, HTTPClient and Logger
// get sensible defaults; a nil Limiter disables local throttling.
type Config struct {
	APIKey     string
	BaseURL    string
	Limiter    *ratelimit.Registry
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client consumes the DART open API (opendart.fss.or.kr). Searches hit
// a preloaded table of top corporations first and fall back to the
// full corpCode dump, downloaded once on demand.
type Client struct {
	apiKey  string
	baseURL string
	limiter *ratelimit.Registry
	logger  *slog.Logger
	http    *http.Client

	mu         sync.Mutex
	fullCorps  []corpEntry
	fullLoaded bool
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://opendart.fss.or.kr"
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
		logger:  cfg.Logger.With("component", "registry"),
		http:    cfg.HTTPClient,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Search matches name against Korean corporations, exact matches
// ranked before partial, capped at five results. The preloaded table
// answers instantly; a miss there triggers a one-time download of the
// full corpCode database.
func (c *Client) Search(ctx context.Context, name string) ([]Candidate, error) {
	if !c.Enabled() {
		return nil, ErrNoCredentials
	}
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return []Candidate{}, nil
	}

	matches := matchCorps(topCorps, query, maxResults)

	if len(matches) == 0 {
		full, err := c.fullCorpData(ctx)
		if err != nil {
			c.logger.Warn("full corp database unavailable", "error", err)
		} else {
			matches = matchCorps(full, query, maxResults)
		}
	}

	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	c.logger.Info("registry search", "query", name, "matches", len(matches))
	return matches, nil
}

// matchCorps scans corps for query, exact name/nameEng matches first,
// then substring matches, preserving table order within each class.
func matchCorps(corps []corpEntry, query string, partialCap int) []Candidate {
	var exact, partial []Candidate
	for _, corp := range corps {
		nameKo := strings.ToLower(corp.CorpName)
		nameEng := strings.ToLower(corp.CorpNameEng)
		switch {
		case query == nameKo || (nameEng != "" && query == nameEng):
			exact = append(exact, toCandidate(corp, "exact"))
		case strings.Contains(nameKo, query) || (nameEng != "" && strings.Contains(nameEng, query)):
			if len(partial) < partialCap {
				partial = append(partial, toCandidate(corp, "partial"))
			}
		}
	}
	return append(exact, partial...)
}

func toCandidate(corp corpEntry, matchType string) Candidate {
	return Candidate{
		Name:       corp.CorpName,
		NameEng:    corp.CorpNameEng,
		CorpCode:   corp.CorpCode,
		StockCode:  corp.StockCode,
		Country:    "KR",
		Source:     "DART",
		EntityType: "COMPANY",
		MatchType:  matchType,
	}
}

// companyResponse is the company.json envelope: status/message plus
// the profile fields at top level. Status "000" is success, "013" no
// data.
type companyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Profile
}

// Lookup fetches the company profile for a DART corp code.
func (c *Client) Lookup(ctx context.Context, corpCode string) (*Profile, error) {
	if !c.Enabled() {
		return nil, ErrNoCredentials
	}
	if c.limiter != nil && !c.limiter.Allow(Provider) {
		return nil, ErrRateLimited
	}

	params := url.Values{}
	params.Set("crtfc_key", c.apiKey)
	params.Set("corp_code", corpCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/company.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: company lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: company lookup: status %d", resp.StatusCode)
	}

	var body companyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("registry: decode company response: %w", err)
	}
	switch body.Status {
	case "000":
		profile := body.Profile
		return &profile, nil
	case "013":
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("registry: DART status %s: %s", body.Status, body.Message)
	}
}

// corpCodeResult is the root element of the corpCode.xml dump.
type corpCodeResult struct {
	XMLName xml.Name    `xml:"result"`
	Corps   []corpEntry `xml:"list"`
}

// fullCorpData downloads and caches the complete corporation database.
// The download happens at most once per client.
func (c *Client) fullCorpData(ctx context.Context) ([]corpEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fullLoaded {
		return c.fullCorps, nil
	}
	if c.limiter != nil && !c.limiter.Allow(Provider) {
		return nil, ErrRateLimited
	}

	params := url.Values{}
	params.Set("crtfc_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/corpCode.xml?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	c.logger.Info("downloading full corp database")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: corp database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: corp database: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("registry: corp database: %w", err)
	}
	var result corpCodeResult
	if err := xml.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("registry: parse corp database: %w", err)
	}

	c.fullCorps = result.Corps
	c.fullLoaded = true
	c.logger.Info("corp database loaded", "corporations", len(result.Corps))
	return c.fullCorps, nil
}
