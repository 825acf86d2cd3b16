package freshness

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	value   interface{}
	stamp   string
	expires time.Time
}

// Cache is a bounded LRU whose entries expire after a TTL or as soon as the
// marker stamp they were computed under changes.
type Cache struct {
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// NewCache creates a cache holding at most size entries, each fresh for ttl.
func NewCache(size int, ttl time.Duration) (*Cache, error) {
	l, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key if it is still fresh for stamp.
func (c *Cache) Get(key, stamp string) (interface{}, bool) {
	raw, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if e.stamp != stamp || !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value for key under the given marker stamp.
func (c *Cache) Set(key, stamp string, value interface{}) {
	c.lru.Add(key, entry{value: value, stamp: stamp, expires: c.now().Add(c.ttl)})
}

// GetOrSet returns the fresh cached value or computes and stores a new one.
// Errors from compute are not cached.
func (c *Cache) GetOrSet(key, stamp string, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key, stamp); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.Set(key, stamp, v)
	return v, nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}
