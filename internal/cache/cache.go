// Package cache provides a bounded, typed in-memory LRU cache.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize bounds caches whose callers have no better estimate.
const DefaultSize = 4096

// Cache is a concurrency-safe LRU holding at most size entries. Entries
// older than ttl are dropped; a ttl <= 0 keeps them until evicted.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// New creates a cache. A size <= 0 falls back to DefaultSize.
func New[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	return c.lru.Get(key)
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V) {
	c.lru.Add(key, value)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
