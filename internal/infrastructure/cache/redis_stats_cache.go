package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisStatsCache implements StatsCache using Redis. Suitable for
// deployments where multiple instances should share one snapshot.
type RedisStatsCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStatsCache creates a Redis-backed stats cache and verifies the connection
func NewRedisStatsCache(cfg *config.RedisConfig) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStatsCache{
		client:    client,
		keyPrefix: "orderhub:stats:",
	}, nil
}

// NewRedisStatsCacheWithClient creates a cache with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisStatsCacheWithClient(client *redis.Client, keyPrefix string) *RedisStatsCache {
	if keyPrefix == "" {
		keyPrefix = "orderhub:stats:"
	}
	return &RedisStatsCache{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached value, or a miss when the key is absent
func (c *RedisStatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read stats cache: %w", err)
	}
	return val, true, nil
}

// Set stores the value under key for at most ttl
func (c *RedisStatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

var _ StatsCache = (*RedisStatsCache)(nil)
