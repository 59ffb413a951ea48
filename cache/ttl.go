package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used by Set when ttl <= 0.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value   any
	created time.Time
	ttl     time.Duration
}

func (e entry) live(now time.Time) bool {
	return now.Sub(e.created) < e.ttl
}

// Stats reports cache activity counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	Entries       int    `json:"entries"`
}

// TTL is a key/value cache with per-entry expiry. It is safe for concurrent
// use.
type TTL struct {
	mu         sync.Mutex
	entries    map[string]entry
	now        func() time.Time
	defaultTTL time.Duration
	group      singleflight.Group

	hits, misses, sets, invalidations atomic.Uint64
}

// Option configures a TTL cache.
type Option func(*TTL)

// WithClock replaces time.Now. Tests use it to expire entries without
// sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *TTL) {
		if now != nil {
			c.now = now
		}
	}
}

// WithDefaultTTL sets the ttl applied when Set is called with ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *TTL) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *TTL {
	c := &TTL{
		entries:    make(map[string]entry),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key. ok is false if the key is absent
// or expired. Expired entries are removed lazily.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !e.live(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *TTL) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, created: c.now(), ttl: ttl}
	c.mu.Unlock()
	c.sets.Add(1)
}

// Invalidate removes every key containing pattern and returns how many were
// removed. An empty pattern clears the cache.
func (c *TTL) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if pattern == "" {
		n = len(c.entries)
		c.entries = make(map[string]entry)
	} else {
		for key := range c.entries {
			if strings.Contains(key, pattern) {
				delete(c.entries, key)
				n++
			}
		}
	}
	c.invalidations.Add(uint64(n))
	return n
}

// Clear removes every entry.
func (c *TTL) Clear() {
	c.Invalidate("")
}

// Len returns the number of stored entries, including expired ones not yet
// removed.
func (c *TTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the keys of live entries.
func (c *TTL) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.live(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result for ttl. Concurrent callers for the same key share one compute
// call. Errors are returned and not cached.
func (c *TTL) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	return v, false, err
}

// peek reads without touching the hit/miss counters.
func (c *TTL) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.live(c.now()) {
		return nil, false
	}
	return e.value, true
}

// Stats returns a snapshot of the activity counters.
func (c *TTL) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       c.Len(),
	}
}

// GetAs is Get with a type assertion. A value of another type is a miss.
func GetAs[T any](c *TTL, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
