// Package cache holds short-lived provider responses keyed by request content.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a response stays servable.
const DefaultTTL = 60 * time.Second

// Cache stores encoded payloads for a bounded time.
type Cache interface {
	// Get returns the payload for key, or false if absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores payload under key, stamped with the current time.
	Set(ctx context.Context, key string, payload []byte)
	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) int
}

// Clock tells the cache what time it is.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type entry struct {
	createdAt time.Time
	payload   []byte
}

// MemoryCache is an in-process Cache. Expired entries are treated as misses
// on read and removed by Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	clock   Clock
}

// NewMemoryCache creates a cache with the given TTL and clock.
// Zero values pick DefaultTTL and SystemClock.
func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns a live entry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.payload, true
}

// Set stores payload under key.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{createdAt: c.clock.Now(), payload: payload}
}

// Sweep drops every expired entry.
func (c *MemoryCache) Sweep(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, live or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured lifetime.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

func (c *MemoryCache) expired(e entry) bool {
	return c.clock.Now().Sub(e.createdAt) >= c.ttl
}

var _ Cache = (*MemoryCache)(nil)
