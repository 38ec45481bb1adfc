// Package cache provides a small TTL cache with single-flight loading,
// used to keep expensive uncapped count queries off the hot list path.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     int64
	expiresAt time.Time
}

type flight struct {
	done  chan struct{}
	value int64
	err   error
}

// CountCache caches int64 values per key for a fixed TTL. Concurrent
// loads of the same key are de-duplicated: one caller computes, the rest
// wait for its result.
type CountCache struct {
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]entry
	inflight map[string]*flight
	now      func() time.Time
}

// New creates a cache with the given TTL. A non-positive TTL disables
// caching entirely: every Get computes.
func New(ttl time.Duration) *CountCache {
	return &CountCache{
		ttl:      ttl,
		entries:  make(map[string]entry),
		inflight: make(map[string]*flight),
		now:      time.Now,
	}
}

// Get returns the cached value for key, or runs load once and caches its
// result. Errors are not cached.
func (c *CountCache) Get(ctx context.Context, key string, load func(context.Context) (int64, error)) (int64, error) {
	if c.ttl <= 0 {
		return load(ctx)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}

	if f, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f := &flight{done: make(chan struct{})}
	c.inflight[key] = f
	c.mu.Unlock()

	f.value, f.err = load(ctx)
	close(f.done)

	c.mu.Lock()
	delete(c.inflight, key)
	if f.err == nil {
		c.entries[key] = entry{value: f.value, expiresAt: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return f.value, f.err
}

// Invalidate drops a cached key.
func (c *CountCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
