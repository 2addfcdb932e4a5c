// Package cache provides an in-memory store for terminal validation
// verdicts. Revocation and expiry are one-way transitions, so a dead
// session's verdict can be served from memory without consulting the store.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lborres/portero/core"
)

// InMemoryCache implements core.VerdictCache with TTL and a size cap.
type InMemoryCache struct {
	cache   map[string]*cachedVerdict
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

type cachedVerdict struct {
	verdict  error
	cachedAt time.Time
}

var _ core.CacheWithStats = (*InMemoryCache)(nil)

// NewInMemoryCache creates a new in-memory verdict cache.
func NewInMemoryCache(ttl time.Duration, maxSize int) *InMemoryCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	if maxSize == 0 {
		maxSize = 500
	}

	return &InMemoryCache{
		cache:   make(map[string]*cachedVerdict),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached verdict for a session id.
func (c *InMemoryCache) Get(sessionID string) (error, bool) {
	c.mu.RLock()
	record, exists := c.cache[sessionID]
	c.mu.RUnlock()

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if time.Since(record.cachedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		c.Delete(sessionID)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return record.verdict, true
}

// Set stores a terminal verdict for a session id.
func (c *InMemoryCache) Set(sessionID string, verdict error) {
	if verdict == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple eviction if full
	if len(c.cache) >= c.maxSize {
		for k := range c.cache {
			delete(c.cache, k)
			atomic.AddInt64(&c.evictions, 1)
			break
		}
	}

	c.cache[sessionID] = &cachedVerdict{
		verdict:  verdict,
		cachedAt: time.Now(),
	}

	atomic.AddInt64(&c.sets, 1)
}

// Delete removes a verdict from cache.
func (c *InMemoryCache) Delete(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, existed := c.cache[sessionID]; existed {
		delete(c.cache, sessionID)
		atomic.AddInt64(&c.deletes, 1)
	}
}

// Clear removes all verdicts from cache.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cachedVerdict)
}

// Len returns the number of cached verdicts.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns cache statistics.
func (c *InMemoryCache) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
