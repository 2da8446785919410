// Package summarize wraps an OpenAI-compatible chat-completions API
// for adverse-media digests and individual risk analysis. Without an
// API key the client is disabled and every call returns empty results
// with a nil error.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/laithharzallah/Laithstool-sub001/internal/report"
)

// ErrUnavailable signals that the model could not be reached after
// retries. Callers treat it as degraded service, not an empty answer.
var ErrUnavailable = errors.New("summarize: service unavailable")

const (
	maxPromptItems = 20
	maxAttempts    = 3
	baseBackoff    = 2 * time.Second
	maxBackoff     = 10 * time.Second
)

// NewsDigest is the structured adverse-media summary produced by the
// model. Items keep provider shape so the report normalizer applies
// the usual sentiment and severity coercion.
type NewsDigest struct {
	Summary string          `json:"summary"`
	Items   []report.Record `json:"items"`
}

// IndividualFindings carries the raw screening signals handed to the
// model for an individual assessment.
type IndividualFindings struct {
	Name      string
	Country   string
	Sanctions []string
	PEP       []string
	Criminal  []string
	News      []report.Record
}

// IndividualAnalysis is the model's verdict on an individual.
type IndividualAnalysis struct {
	ExecutiveSummary string `json:"executive_summary"`
	RiskAssessment   string `json:"risk_assessment"`
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	logger  *slog.Logger
	http    *http.Client
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  cfg.Logger.With("component", "summarize"),
		http:    cfg.HTTPClient,
		sleep:   sleepCtx,
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

// SummarizeNews asks the model for a digest of the given articles.
// At most 20 items go into the prompt. A model answer that is not
// valid JSON degrades to an empty digest.
func (c *Client) SummarizeNews(ctx context.Context, company string, items []report.Record) (NewsDigest, error) {
	if !c.Enabled() {
		return NewsDigest{}, nil
	}
	if len(items) > maxPromptItems {
		items = items[:maxPromptItems]
	}
	prompt, err := newsPrompt(company, items)
	if err != nil {
		return NewsDigest{}, fmt.Errorf("summarize: build prompt: %w", err)
	}
	content, err := c.complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return NewsDigest{}, err
	}

	var digest NewsDigest
	if err := json.Unmarshal([]byte(extractJSON(content)), &digest); err != nil {
		c.logger.Warn("model returned malformed digest", "company", company, "error", err)
		return NewsDigest{}, nil
	}
	if digest.Items == nil {
		digest.Items = []report.Record{}
	}
	return digest, nil
}

// AnalyzeIndividual asks the model for an executive summary and risk
// assessment over the collected findings.
func (c *Client) AnalyzeIndividual(ctx context.Context, f IndividualFindings) (IndividualAnalysis, error) {
	if !c.Enabled() {
		return IndividualAnalysis{}, nil
	}
	prompt, err := individualPrompt(f)
	if err != nil {
		return IndividualAnalysis{}, fmt.Errorf("summarize: build prompt: %w", err)
	}
	content, err := c.complete(ctx, analystSystemPrompt, prompt)
	if err != nil {
		return IndividualAnalysis{}, err
	}

	var analysis IndividualAnalysis
	if err := json.Unmarshal([]byte(extractJSON(content)), &analysis); err != nil {
		c.logger.Warn("model returned malformed analysis", "name", f.Name, "error", err)
		return IndividualAnalysis{}, nil
	}
	return analysis, nil
}

const analystSystemPrompt = "You are a due-diligence compliance analyst. Respond with a single JSON object and nothing else."

func newsPrompt(company string, items []report.Record) (string, error) {
	trimmed := make([]report.Record, 0, len(items))
	for _, it := range items {
		trimmed = append(trimmed, report.Record{
			"title":   it["title"],
			"url":     it["url"],
			"source":  it["source"],
			"snippet": it["snippet"],
		})
	}
	payload, err := json.Marshal(trimmed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Summarize the adverse media coverage for company %q.
Classify every article. Respond as:
{"summary": string, "items": [{"title": string, "url": string, "sentiment": "negative"|"neutral"|"positive", "severity": 1-5}]}

Articles:
%s`, company, payload), nil
}

func individualPrompt(f IndividualFindings) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"name":            f.Name,
		"country":         f.Country,
		"sanctions_lists": f.Sanctions,
		"pep_sources":     f.PEP,
		"criminal_lists":  f.Criminal,
		"news":            f.News,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Assess the compliance screening findings for individual %q.
Respond as: {"executive_summary": string, "risk_assessment": string}

Findings:
%s`, f.Name, payload), nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete runs one chat completion, retrying with exponential
// backoff. Exhausted retries wrap ErrUnavailable.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return "", err
			}
		}
		content, err := c.completeOnce(ctx, system, user)
		if err == nil {
			return content, nil
		}
		lastErr = err
		c.logger.Warn("chat completion failed", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, maxAttempts, lastErr)
}

func (c *Client) completeOnce(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: &chatFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion: no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// backoff returns the delay before the given attempt: 2s, 4s, ...
// capped at 10s.
func backoff(attempt int) time.Duration {
	d := baseBackoff << (attempt - 2)
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extractJSON trims chatter around the model's JSON object, including
// markdown fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
