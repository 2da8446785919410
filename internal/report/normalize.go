package report

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Input is everything the normalizer merges into one Report. Raw
// records stay in their upstream shapes; only the scalar fields are
// typed here.
type Input struct {
	Name         string
	Country      string
	Website      string
	Executives   []Record
	Ownership    []Record
	News         []Record
	NewsSummary  string
	Sources      []string
	Warnings     []string
	CacheHit     bool
	FeatureFlags map[string]bool
}

// Fingerprint derives the dedup identity of a news item from its title
// and URL, both trimmed and lowercased. Items differing only in
// snippet, source or casing share a fingerprint.
func Fingerprint(title, url string) string {
	base := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(url))
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

// Normalize merges heterogeneous source records into a canonical
// Report. It never fails: malformed optional fields are defaulted or
// clamped, never rejected. Inputs are not mutated, and every slice in
// the result is non-nil so the JSON form is stable.
func Normalize(in Input) Report {
	executives := make([]Executive, 0, len(in.Executives))
	for _, e := range in.Executives {
		executives = append(executives, Executive{
			Name:   stringField(e, "name"),
			Role:   stringField(e, "position", "role"),
			Source: sourceField(e),
		})
	}

	ownership := make([]Ownership, 0, len(in.Ownership))
	for _, o := range in.Ownership {
		ownership = append(ownership, Ownership{
			Holder:   stringField(o, "name", "holder"),
			Percent:  percentField(o, "percent"),
			Relation: stringField(o, "relation"),
			Source:   sourceField(o),
		})
	}

	seen := make(map[string]struct{}, len(in.News))
	items := make([]NewsItem, 0, len(in.News))
	for _, it := range in.News {
		title := stringField(it, "title")
		url := stringField(it, "url")
		fp := Fingerprint(title, url)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		items = append(items, NewsItem{
			Title:       title,
			URL:         url,
			Source:      stringField(it, "source"),
			PublishedAt: stringField(it, "publishedAt"),
			Sentiment:   normalizeSentiment(it["sentiment"]),
			Severity:    normalizeSeverity(it["severity"]),
			Snippet:     stringField(it, "snippet"),
		})
	}

	sources := in.Sources
	if sources == nil {
		sources = []string{}
	}
	warnings := in.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	flags := in.FeatureFlags
	if flags == nil {
		flags = map[string]bool{}
	}

	return Report{
		Company: Company{
			Name:        in.Name,
			Country:     in.Country,
			Website:     in.Website,
			Identifiers: Identifiers{Other: map[string]string{}},
		},
		Executives: executives,
		Ownership:  ownership,
		AdverseMedia: AdverseMedia{
			Summary: in.NewsSummary,
			Items:   items,
		},
		Meta: Meta{
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			Sources:      sources,
			Warnings:     warnings,
			CacheHit:     in.CacheHit,
			FeatureFlags: flags,
		},
	}
}

// MergeNews overlays sentiment and severity classifications onto raw
// search records, matched by fingerprint. Classified records with no
// raw counterpart are appended, so model-only findings survive the
// merge. Inputs are not mutated.
func MergeNews(raw, classified []Record) []Record {
	idx := make(map[string]Record, len(classified))
	for _, c := range classified {
		idx[Fingerprint(stringField(c, "title"), stringField(c, "url"))] = c
	}
	matched := make(map[string]struct{}, len(classified))
	out := make([]Record, 0, len(raw)+len(classified))
	for _, r := range raw {
		fp := Fingerprint(stringField(r, "title"), stringField(r, "url"))
		c, ok := idx[fp]
		if !ok {
			out = append(out, r)
			continue
		}
		matched[fp] = struct{}{}
		merged := make(Record, len(r)+2)
		for k, v := range r {
			merged[k] = v
		}
		if v, ok := c["sentiment"]; ok {
			merged["sentiment"] = v
		}
		if v, ok := c["severity"]; ok {
			merged["severity"] = v
		}
		out = append(out, merged)
	}
	for _, c := range classified {
		fp := Fingerprint(stringField(c, "title"), stringField(c, "url"))
		if _, ok := matched[fp]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// normalizeSentiment trims, lowercases and whitelists a sentiment
// value. Anything outside the three recognized values, missing
// included, becomes neutral.
func normalizeSentiment(v any) string {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case SentimentNegative:
			return SentimentNegative
		case SentimentPositive:
			return SentimentPositive
		case SentimentNeutral:
			return SentimentNeutral
		}
	}
	return SentimentNeutral
}

// normalizeSeverity coerces a severity to an integer clamped into
// [SeverityMin, SeverityMax]. Missing or non-numeric values fall back
// to SeverityDefault.
func normalizeSeverity(v any) int {
	n, ok := asInt(v)
	if !ok {
		return SeverityDefault
	}
	if n < SeverityMin {
		return SeverityMin
	}
	if n > SeverityMax {
		return SeverityMax
	}
	return n
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// stringField returns the first non-empty string value among keys,
// formatting numeric values rather than dropping them.
func stringField(r Record, keys ...string) string {
	for _, key := range keys {
		switch v := r[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// sourceField reads a record's source tag, defaulting to "web" for
// records scraped without attribution.
func sourceField(r Record) string {
	if s := stringField(r, "source"); s != "" {
		return s
	}
	return "web"
}

func percentField(r Record, key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}
