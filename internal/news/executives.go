package news

import (
	"regexp"
	"strings"

	"github.com/laithharzallah/Laithstool-sub001/internal/report"
)

// rolePatterns pair an executive title with the capture that finds a
// capitalized name next to it, in both "CEO Jane Doe" and
// "Jane Doe, CEO" orders.
var rolePatterns = []struct {
	role string
	re   *regexp.Regexp
}{
	{"CEO", regexp.MustCompile(`CEO\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)},
	{"CEO", regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),?\s+CEO`)},
	{"Chairman", regexp.MustCompile(`Chairman\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)},
	{"Chairman", regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*),?\s+Chairman`)},
}

// ExtractExecutives mines search records for executive mentions in
// titles and snippets. Names are deduplicated case-insensitively,
// first mention wins.
func ExtractExecutives(records []report.Record) []report.Record {
	seen := make(map[string]struct{})
	out := []report.Record{}
	for _, r := range records {
		title, _ := r["title"].(string)
		snippet, _ := r["snippet"].(string)
		source, _ := r["source"].(string)
		if source == "" {
			source = "web"
		}
		text := title + " " + snippet
		for _, p := range rolePatterns {
			for _, m := range p.re.FindAllStringSubmatch(text, -1) {
				name := strings.TrimSpace(m[1])
				if name == "" {
					continue
				}
				key := strings.ToLower(name)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, report.Record{
					"name":     name,
					"position": p.role,
					"source":   source,
				})
			}
		}
	}
	return out
}
