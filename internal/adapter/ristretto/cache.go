// Package ristretto implements the cache port using dgraph-io/ristretto as
// an in-process cache for contact display names.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache of string values.
type Cache struct {
	c *ristretto.Cache[string, string]
}

// New creates a ristretto-backed cache. maxEntries bounds the number of
// cached names; each entry costs 1.
func New(maxEntries int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10, // ~10x expected items
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (string, bool) {
	return c.c.Get(key)
}

// Set stores a value in the cache with the given TTL.
func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.c.SetWithTTL(key, value, 1, ttl)
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
