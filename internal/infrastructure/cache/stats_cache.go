// Package cache provides short-lived caching for aggregated channel statistics.
// Stats are expensive to compute (they fan out to every channel), so callers
// may serve a recent snapshot instead of re-aggregating on every request.
package cache

import (
	"context"
	"time"
)

// StatsCache stores serialized snapshots keyed by name with a TTL.
// Implementations must treat a missing or expired key as a cache miss,
// never as an error.
type StatsCache interface {
	// Get returns the cached value and true, or nil and false on a miss
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value under key for at most ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any resources held by the cache
	Close() error
}
