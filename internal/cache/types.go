package cache

import "time"

// entry holds a cached value with its absolute expiry. An entry is
// logically absent once the current time reaches ExpiresAt, even if it
// has not been swept yet.
type entry struct {
	Value     any
	ExpiresAt time.Time
}

// Stats is a point-in-time snapshot of cache counters. Hits, Misses and
// Evictions only ever increase; Size reflects live entries after an
// expiry sweep.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache configuration
const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 1 * time.Minute
)
