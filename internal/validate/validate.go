package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldError reports a rejected request field. Handlers map it to a
// 400 response naming the field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// Patterns that have no business inside a name field. Matching input
// is rejected outright rather than sanitized.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)union\s+select`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)insert\s+into`),
	regexp.MustCompile(`(?i)delete\s+from`),
	regexp.MustCompile(`(?i)update\s+set`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`;\s*$`),
}

var (
	nameChars     = regexp.MustCompile(`^[a-zA-Z\s\-'.]+$`)
	domainPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`)
	registryIDRe  = regexp.MustCompile(`^\d{8,}$`)
)

// CompanyName validates and trims a company name. Returns the cleaned
// value.
func CompanyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fieldErr("company", "company name is required")
	}
	if utf8.RuneCountInString(name) < 2 {
		return "", fieldErr("company", "company name must be at least 2 characters")
	}
	if utf8.RuneCountInString(name) > 200 {
		return "", fieldErr("company", "company name is too long (max 200 characters)")
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(name) {
			return "", fieldErr("company", "invalid characters in company name")
		}
	}
	return name, nil
}

// PersonName validates an individual's name: letters, spaces, hyphens,
// apostrophes and periods only.
func PersonName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fieldErr("name", "name is required")
	}
	if utf8.RuneCountInString(name) < 2 {
		return "", fieldErr("name", "name must be at least 2 characters")
	}
	if utf8.RuneCountInString(name) > 150 {
		return "", fieldErr("name", "name is too long (max 150 characters)")
	}
	if !nameChars.MatchString(name) {
		return "", fieldErr("name", "name contains invalid characters")
	}
	return name, nil
}

// Country validates an optional country name; empty input passes
// through empty.
func Country(country string) (string, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return "", nil
	}
	if utf8.RuneCountInString(country) > 100 {
		return "", fieldErr("country", "country name is too long")
	}
	if !nameChars.MatchString(country) {
		return "", fieldErr("country", "country contains invalid characters")
	}
	return country, nil
}

// Domain validates an optional hostname, returned lowercased.
func Domain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", nil
	}
	if !domainPattern.MatchString(domain) {
		return "", fieldErr("domain", "invalid domain format")
	}
	return domain, nil
}

// DateOfBirth validates an optional YYYY-MM-DD date between 1900 and
// today.
func DateOfBirth(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return "", fieldErr("date_of_birth", "invalid date format, use YYYY-MM-DD")
	}
	if d.After(time.Now()) {
		return "", fieldErr("date_of_birth", "date of birth cannot be in the future")
	}
	if d.Year() < 1900 {
		return "", fieldErr("date_of_birth", "invalid date of birth")
	}
	return s, nil
}

// ScreeningLevel validates the requested depth, defaulting to
// "standard" when absent.
func ScreeningLevel(level string) (string, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return "standard", nil
	}
	switch level {
	case "basic", "standard", "enhanced":
		return level, nil
	}
	return "", fieldErr("level", "invalid screening level, must be one of: basic, standard, enhanced")
}

// RegistryID validates an optional corporate registry code: numeric,
// at least 8 digits (DART corp codes are 8).
func RegistryID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	if !registryIDRe.MatchString(id) {
		return "", fieldErr("registry_id", "invalid registry ID format")
	}
	return id, nil
}
