package cache

import (
	"context"
	"time"
)

// Cache is the contract for the read-through cache layer.
// Implementations: Redis (infrastructure/cache) and in-memory (memory.go).
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found=false on a miss, dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys from the cache
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching a glob pattern, e.g. "books:list:*"
	DeletePattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error
}
