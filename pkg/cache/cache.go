// Package cache provides byte-level response caching for API lookups.
//
// Search responses rarely change between invocations, so the CLI keeps
// them on disk for a short while and serves repeat lookups without
// touching the network. Callers that want no caching use [NullCache]
// instead of branching at every call site.
package cache

import (
	"context"
	"time"
)

// Cache stores raw response bytes under string keys.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
