package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limit describes a provider's steady refill rate and burst capacity.
type Limit struct {
	PerSecond float64
	Burst     int
}

// DefaultLimit applies to providers without an explicit entry.
var DefaultLimit = Limit{PerSecond: 1, Burst: 5}

// Registry hands out one token bucket per provider name, created
// lazily on first use. In-memory and not shared across processes;
// adequate for a single instance.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limits   map[string]Limit
}

// NewRegistry builds a registry with per-provider limits. A nil map is
// allowed; every provider then gets DefaultLimit.
func NewRegistry(limits map[string]Limit) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		limits:   limits,
	}
}

// Allow reports whether provider may make one call now, consuming a
// token when it may. Non-blocking: a denial is the caller's cue to
// skip or degrade, not to wait.
func (r *Registry) Allow(provider string) bool {
	return r.limiter(provider).Allow()
}

func (r *Registry) limiter(provider string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[provider]; ok {
		return l
	}
	lim, ok := r.limits[provider]
	if !ok {
		lim = DefaultLimit
	}
	if lim.Burst < 1 {
		lim.Burst = 1
	}
	l := rate.NewLimiter(rate.Limit(lim.PerSecond), lim.Burst)
	r.limiters[provider] = l
	return l
}
