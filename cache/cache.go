package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/placescout/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  models.SearchResponse
	createdAt time.Time
}

// Cache is a small in-memory cache of search responses keyed by query.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache holding at most maxEntries responses. Entries older
// than ttl are dropped on Sweep.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Key derives the cache key of a query. Term and country are case-folded.
func Key(q models.SearchQuery) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(q.Term)))
	h.Write([]byte("|"))
	h.Write([]byte(strings.ToLower(q.Country)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(q.Limit)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached response younger than maxAge. The Records slice is
// shared; callers must not modify it.
func (c *Cache) Get(key string, maxAge time.Duration) (models.SearchResponse, bool) {
	if maxAge <= 0 {
		return models.SearchResponse{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return models.SearchResponse{}, false
	}
	return e.response, true
}

// Set stores a response. At capacity, the oldest entry is evicted.
func (c *Cache) Set(key string, resp models.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{response: resp, createdAt: c.now()}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Sweep drops entries older than the TTL and returns how many were removed.
func (c *Cache) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

// RunSweeper calls Sweep every interval until done is closed.
func (c *Cache) RunSweeper(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
