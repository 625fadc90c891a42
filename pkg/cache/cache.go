// Package cache provides the process-local TTL cache used by every
// retrieval service, plus the per-cache key builders.
package cache

import (
	"sync"
	"time"
)

// entry holds a cached value with its expiry instant.
type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with per-entry TTL.
// Expired entries are cleaned up lazily on Get() — no background goroutine.
// Writes overwrite; failed lookups upstream never replace a good entry
// because only successful results are ever stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL, applied at Set time.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		// Expired — evict lazily. Re-check under write lock: a concurrent
		// Set() may have replaced the entry with a fresh one.
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && !c.now().Before(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores value with expiry now + ttl.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = &entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len reports the number of entries including ones not yet lazily evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
