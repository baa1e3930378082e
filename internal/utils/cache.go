package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Cache is a bounded LRU whose entries also expire after a fixed TTL.
type Cache[V any] struct {
	lruCache *lru.Cache[string, cacheItem[V]]
	ttl      time.Duration
}

// NewCache creates a cache holding at most size entries for ttl each.
func NewCache[V any](size int, ttl time.Duration) (*Cache[V], error) {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Cache[V]{lruCache: l, ttl: ttl}, nil
}

// Set stores data under key with the cache's TTL.
func (c *Cache[V]) Set(key string, data V) {
	c.lruCache.Add(key, cacheItem[V]{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	})
}

// Get returns the cached value, or false when it is missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		var zero V
		return zero, false
	}

	return val.Data, true
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lruCache.Purge()
}
