// Package cache defines the in-process cache port used for contact lookups.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL'd string cache. Used to avoid a bridge round-trip for the
// contact display name on every analyzed message.
type Cache interface {
	// Get retrieves a cached value. ok is false on miss.
	Get(ctx context.Context, key string) (value string, ok bool)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration)

	// Close releases cache resources.
	Close()
}
