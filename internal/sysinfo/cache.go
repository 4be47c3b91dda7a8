package sysinfo

import (
	"sync"
	"time"
)

// Entry is one cached query result. Failed entries hold the sentinel record
// that was emitted in place of real data; caching them avoids hammering an
// adapter that already failed (the GPU freshness window relies on this).
type Entry struct {
	Record    Record
	Failed    bool
	FetchedAt time.Time
}

// Cache holds the last-fetched record per category. It is owned by the
// loader/poller pair: they are the only writers, and no two writers touch the
// same category. Readers may arrive from other goroutines (command handlers),
// so access is mutex-guarded.
type Cache struct {
	mu      sync.RWMutex
	entries map[Category]Entry
	now     func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[Category]Entry),
		now:     time.Now,
	}
}

// Get returns the cached entry for a category, if any.
func (c *Cache) Get(cat Category) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cat]
	return e, ok
}

// Put stores a query result for a category, stamping the fetch time.
func (c *Cache) Put(cat Category, rec Record, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cat] = Entry{Record: rec, Failed: failed, FetchedAt: c.now()}
}

// FreshWithin returns the cached entry if it was fetched less than window ago.
func (c *Cache) FreshWithin(cat Category, window time.Duration) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cat]
	if !ok || c.now().Sub(e.FetchedAt) >= window {
		return Entry{}, false
	}
	return e, true
}

// Invalidate removes a single category.
func (c *Cache) Invalidate(cat Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cat)
}

// InvalidateAll resets the cache, permitting static categories to be
// re-queried on the next load.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Category]Entry)
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
