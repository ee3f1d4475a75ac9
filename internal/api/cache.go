package api

import (
	"sync"
	"time"
)

// Cache is a path-keyed response cache for feed reads. Mutations do not
// update it directly; the upload coordinator invalidates the affected keys
// after a successful post and the next read refetches.
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	posts    []Post
	storedAt time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached posts for a path, or false when absent or stale.
func (c *Cache) Get(path string) ([]Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, path)
		return nil, false
	}
	return entry.posts, true
}

// Put stores the posts for a path.
func (c *Cache) Put(path string, posts []Post) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{posts: posts, storedAt: c.now()}
}

// Invalidate drops the given paths. Unknown paths are ignored.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		delete(c.entries, path)
	}
}

// Len returns the number of live entries, for tests and status reporting.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
