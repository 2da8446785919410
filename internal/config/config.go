package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig holds the HTTP listener settings. APIKey guards inbound
// requests via X-API-Key; empty disables the check.
type ServerConfig struct {
	ListenAddr string
	LogLevel   string
	APIKey     string
}

func GetServerConfig() *ServerConfig {
	addr := getEnv("LISTEN_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}
	return &ServerConfig{
		ListenAddr: addr,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		APIKey:     getEnv("SCREENER_API_KEY", ""),
	}
}

// CacheConfig carries the per-operation TTL policy and wrapper options.
// TTL env values are integer seconds.
type CacheConfig struct {
	CompanyTTL        time.Duration
	IndividualTTL     time.Duration
	RegistryLookupTTL time.Duration
	RegistrySearchTTL time.Duration
	SweepInterval     time.Duration
	CacheErrors       bool
	SingleFlight      bool
}

func GetCacheConfig() *CacheConfig {
	return &CacheConfig{
		CompanyTTL:        getEnvSeconds("CACHE_TTL_COMPANY", 300),
		IndividualTTL:     getEnvSeconds("CACHE_TTL_INDIVIDUAL", 300),
		RegistryLookupTTL: getEnvSeconds("CACHE_TTL_DART", 3600),
		RegistrySearchTTL: getEnvSeconds("CACHE_TTL_DART_SEARCH", 600),
		SweepInterval:     getEnvSeconds("CACHE_SWEEP_INTERVAL", 60),
		CacheErrors:       getEnvBool("CACHE_ERRORS", false),
		SingleFlight:      getEnvBool("CACHE_SINGLEFLIGHT", false),
	}
}

// ProviderConfig holds credentials and endpoints for the external data
// providers. A provider with an empty key is disabled, not an error.
type ProviderConfig struct {
	DARTAPIKey  string
	DARTBaseURL string

	GoogleAPIKey string
	GoogleCSEID  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	DilisenseAPIKey  string
	DilisenseBaseURL string

	NewsMaxResults int
}

func GetProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		DARTAPIKey:       getEnv("DART_API_KEY", ""),
		DARTBaseURL:      getEnv("DART_BASE_URL", "https://opendart.fss.or.kr"),
		GoogleAPIKey:     getEnv("GOOGLE_API_KEY", ""),
		GoogleCSEID:      getEnv("GOOGLE_CSE_ID", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DilisenseAPIKey:  getEnv("DILISENSE_API_KEY", ""),
		DilisenseBaseURL: getEnv("DILISENSE_BASE_URL", "https://api.dilisense.com/v1"),
		NewsMaxResults:   getEnvInt("NEWS_MAX_RESULTS", 20),
	}
}

// MissingKeys lists the provider credentials that are not configured,
// for a startup warning. The service still runs; the affected providers
// are skipped.
func (p *ProviderConfig) MissingKeys() []string {
	var missing []string
	if p.DARTAPIKey == "" {
		missing = append(missing, "DART_API_KEY")
	}
	if p.GoogleAPIKey == "" || p.GoogleCSEID == "" {
		missing = append(missing, "GOOGLE_API_KEY/GOOGLE_CSE_ID")
	}
	if p.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if p.DilisenseAPIKey == "" {
		missing = append(missing, "DILISENSE_API_KEY")
	}
	return missing
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
