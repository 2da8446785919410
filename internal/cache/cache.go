package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory key/value store with per-entry TTLs and
// hit/miss/eviction counters. All operations are safe for concurrent
// use. Expired entries are removed lazily on Get and in bulk by
// CleanupExpired; a background sweeper can be started with StartSweeper.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the value stored under key if it has not expired. An
// expired entry is removed and counted as an eviction; both expiry and
// true absence count as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if time.Now().Before(e.ExpiresAt) {
			c.hits++
			return e.Value, true
		}
		delete(c.entries, key)
		c.evictions++
	}
	c.misses++
	return nil, false
}

// Set stores value under key with expiry now+ttl, overwriting any
// previous entry for that key.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{Value: value, ExpiresAt: time.Now().Add(ttl)}
}

// Delete removes key without touching any counters.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries. Counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// CleanupExpired removes every entry whose expiry has passed, counting
// one eviction per removed entry. Returns the number removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cleanupLocked()
}

func (c *Cache) cleanupLocked() int {
	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}
	return removed
}

// Len returns the number of physically stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats sweeps expired entries first so Size never reports stale
// entries as live, then returns a snapshot of the counters. The hit
// rate denominator is floored at 1, so an untouched cache reports 0.0.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()

	total := c.hits + c.misses
	if total == 0 {
		total = 1
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		HitRate:   float64(c.hits) / float64(total),
	}
}

// StartSweeper runs CleanupExpired on the given interval until ctx is
// done. Callers that only rely on lazy expiry do not need it; it keeps
// memory bounded when keys are never read again.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanupExpired()
			}
		}
	}()
}
