// Package cache provides a TTL cache for one upstream resource's last
// good response. Its contract is the resilience rule that a
// rate-limited or briefly unavailable upstream must not become a
// user-visible outage once at least one fetch has succeeded.
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/i474232898/morning-briefing/internal/upstream"
)

// Cache holds the last good value of type T. Entries are only ever
// replaced wholesale, never partially merged.
type Cache[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	at    time.Time
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries stay fresh for ttl.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value unconditionally while it is fresh;
// otherwise it invokes fetch. A successful fetch atomically replaces
// the entry. A transient fetch failure falls back to the stale value
// when one exists; with no prior value, or on a permanent failure, the
// error propagates.
//
// The lock is not held across fetch, so two concurrent callers may
// both fetch. That wastes an upstream call at worst; the replace step
// itself is atomic.
func (c *Cache[T]) Get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if c.set && c.now().Sub(c.at) < c.ttl {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.set && upstream.Transient(err) {
			log.Printf("cache: fetch failed, serving stale value from %s: %v", c.at.Format(time.RFC3339), err)
			return c.value, nil
		}
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.value = v
	c.at = c.now()
	c.set = true
	c.mu.Unlock()

	return v, nil
}
