// Package ttlcache is a process-local key/value cache with absolute expiry.
// Expired entries are dropped when read; Sweep removes the rest in bulk.
package ttlcache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	items  map[string]entry
	ttl    time.Duration
	now    func() time.Time
	hits   uint64
	misses uint64
	flight singleflight.Group
}

// New creates a cache whose Set uses ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{items: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key with a specific TTL.
func (c *Cache) SetTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeletePrefix removes every key starting with prefix and returns the count.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Sweep removes expired entries and returns the count.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors are not cached. Concurrent misses for the same key share
// one call to load.
func GetOrLoad[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("ttlcache: value for %q has type %T", key, v)
	}
	return t, nil
}
