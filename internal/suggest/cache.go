package suggest

import (
	"sync"
	"time"
)

const (
	defaultCacheTTL        = time.Hour
	defaultCacheMaxEntries = 500
)

type cacheEntry struct {
	meta      Metadata
	expiresAt time.Time
}

// Cache holds homepage metadata keyed by hostname. Eviction is FIFO by
// insertion order, not LRU: a site's title and favicon are stable, so
// recency says nothing about which entry is worth keeping.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	order      []string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewCache builds a Cache with the given TTL and capacity.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached metadata for host, never past its expiry.
func (c *Cache) Get(host string) (Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[host]
	if !ok {
		return Metadata{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, host)
		return Metadata{}, false
	}
	return entry.meta, true
}

// Put stores metadata for host, evicting the oldest-inserted entry
// once the capacity is reached.
func (c *Cache) Put(host string, meta Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.entries[host]
	c.entries[host] = cacheEntry{meta: meta, expiresAt: c.now().Add(c.ttl)}
	if exists {
		return
	}
	c.order = append(c.order, host)
	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		// Expired entries removed by Get leave stale order slots behind.
		if _, live := c.entries[oldest]; live {
			delete(c.entries, oldest)
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
