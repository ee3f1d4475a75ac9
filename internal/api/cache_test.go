package api

import (
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	c := NewCache(30 * time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("/api/posts", []Post{{ID: "a"}})
	if _, ok := c.Get("/api/posts"); !ok {
		t.Fatal("expected fresh entry to be served")
	}

	now = now.Add(31 * time.Second)
	if _, ok := c.Get("/api/posts"); ok {
		t.Error("expected stale entry to be dropped")
	}
	if c.Len() != 0 {
		t.Errorf("stale entry should be evicted, have %d entries", c.Len())
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Put("/api/posts", nil)
	c.Put("/api/posts/channel/music", nil)

	c.Invalidate("/api/posts", "/api/posts/unknown")

	if _, ok := c.Get("/api/posts"); ok {
		t.Error("invalidated key should be gone")
	}
	if _, ok := c.Get("/api/posts/channel/music"); !ok {
		t.Error("untouched key should survive")
	}
}
