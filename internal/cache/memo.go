package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrCachedFailure reports a hit on a cached failure marker: the
// underlying operation failed recently and is not retried until the
// marker expires. Unwrap with errors.Is.
var ErrCachedFailure = errors.New("cached failure")

// failure is the marker stored in place of a value when error caching
// is enabled. Markers live for a tenth of the operation's TTL.
type failure struct {
	msg string
}

// Memo caches the results of named operations in a Cache, deriving the
// key from the operation name and arguments via Key. TTLs come from a
// per-operation policy with a fallback default.
type Memo struct {
	cache       *Cache
	ttls        map[string]time.Duration
	defaultTTL  time.Duration
	cacheErrors bool
	group       *singleflight.Group
}

// Option configures a Memo.
type Option func(*Memo)

// WithTTL sets the TTL for a single operation.
func WithTTL(op string, ttl time.Duration) Option {
	return func(m *Memo) { m.ttls[op] = ttl }
}

// WithTTLPolicy merges a per-operation TTL table.
func WithTTLPolicy(policy map[string]time.Duration) Option {
	return func(m *Memo) {
		for op, ttl := range policy {
			m.ttls[op] = ttl
		}
	}
}

// WithDefaultTTL sets the TTL used for operations absent from the policy.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Memo) { m.defaultTTL = ttl }
}

// WithErrorCaching stores a failure marker when the wrapped function
// errors, at a tenth of the operation's TTL. Repeated calls inside that
// window fail fast with ErrCachedFailure instead of re-invoking the
// function.
func WithErrorCaching() Option {
	return func(m *Memo) { m.cacheErrors = true }
}

// WithSingleFlight collapses concurrent misses on the same key into a
// single invocation; the other callers wait and share the result. Off
// by default: without it concurrent misses each invoke the function,
// which is harmless for idempotent operations.
func WithSingleFlight() Option {
	return func(m *Memo) { m.group = new(singleflight.Group) }
}

// NewMemo wraps c with memoization. The zero policy uses DefaultTTL for
// every operation.
func NewMemo(c *Cache, opts ...Option) *Memo {
	m := &Memo{
		cache:      c,
		ttls:       make(map[string]time.Duration),
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache exposes the underlying cache for stats and clearing.
func (m *Memo) Cache() *Cache { return m.cache }

// TTL returns the TTL in force for op.
func (m *Memo) TTL(op string) time.Duration {
	if ttl, ok := m.ttls[op]; ok {
		return ttl
	}
	return m.defaultTTL
}

// Do returns the cached result for op and args, invoking fn on a miss
// and storing its result for the operation's TTL. A cached failure
// marker surfaces as ErrCachedFailure. fn errors pass through
// unchanged and cache nothing unless error caching is on.
func (m *Memo) Do(ctx context.Context, op string, fn func(context.Context) (any, error), args ...any) (any, error) {
	key := Key(op, args...)

	if v, ok := m.cache.Get(key); ok {
		return m.unwrap(v)
	}

	if m.group != nil {
		v, err, _ := m.group.Do(key, func() (any, error) {
			// Re-check under the flight: a racing caller may have
			// filled the entry between our miss and this call.
			if v, ok := m.cache.Get(key); ok {
				return v, nil
			}
			v, err := fn(ctx)
			m.store(key, op, v, err)
			if err != nil {
				return nil, err
			}
			return v, nil
		})
		if err != nil {
			return nil, err
		}
		return m.unwrap(v)
	}

	v, err := fn(ctx)
	m.store(key, op, v, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Memo) store(key, op string, v any, err error) {
	if err == nil {
		m.cache.Set(key, v, m.TTL(op))
		return
	}
	if m.cacheErrors {
		m.cache.Set(key, failure{msg: err.Error()}, m.TTL(op)/10)
	}
}

func (m *Memo) unwrap(v any) (any, error) {
	if f, ok := v.(failure); ok {
		return nil, fmt.Errorf("%w: %s", ErrCachedFailure, f.msg)
	}
	return v, nil
}

// Cached is the typed form of Memo.Do for callers that know the result
// type. A cached value of the wrong type counts as a programming error
// and is reported rather than silently refetched.
func Cached[T any](ctx context.Context, m *Memo, op string, fn func(context.Context) (T, error), args ...any) (T, error) {
	var zero T
	v, err := m.Do(ctx, op, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, args...)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T, want %T", op, v, zero)
	}
	return t, nil
}
