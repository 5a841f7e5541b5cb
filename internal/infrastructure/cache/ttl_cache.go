// Package cache provides an in-process key/value cache with per-entry expiry.
//
// Expired entries are evicted lazily on the next read of their key; there is no
// background sweeper, so memory is bounded by the number of distinct keys.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a read-only snapshot of the cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// TTLCache is safe for concurrent use. A single mutex guards the map and the
// counters so a get/evict or set never interleaves with another writer.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	hits    int64
	misses  int64
	now     func() time.Time
}

// Option configures a TTLCache.
type Option[V any] func(*TTLCache[V])

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) { c.now = now }
}

func New[V any](opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it has not expired. An expired
// entry is removed. Every call counts as exactly one hit or one miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !c.now().After(e.expiresAt) {
		c.hits++
		return e.value, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.misses++
	var zero V
	return zero, false
}

// Set inserts or overwrites key with an expiry of now+ttl.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Clear drops every entry and resets both counters.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
	c.hits = 0
	c.misses = 0
}

// Stats reports counters and the number of stored entries, expired ones included
// until they are read.
func (c *TTLCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}
