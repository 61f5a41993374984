// Package redis implements the Redis-backed result cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/siege-stats/internal/cache"
	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// Cache stores aggregated player stats as JSON values with a native
// Redis expiry, so stale entries vanish server-side without a sweeper.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache connects to Redis and returns a stats cache
func NewCache(cfg *config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Get returns the cached stats for a player, or nil on a miss
func (c *Cache) Get(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	data, err := c.client.Get(ctx, cache.Key(username, platform)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting cached stats: %w", err)
	}

	var stats domain.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// A corrupt entry is as good as a miss; drop it
		c.logger.Warn("dropping corrupt cache entry", "key", cache.Key(username, platform), "error", err)
		c.client.Del(ctx, cache.Key(username, platform))
		return nil, nil
	}
	return &stats, nil
}

// Put stores the stats with the configured TTL, overwriting any
// existing entry for the key
func (c *Cache) Put(ctx context.Context, username string, platform domain.Platform, stats *domain.PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	if err := c.client.Set(ctx, cache.Key(username, platform), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching stats: %w", err)
	}
	return nil
}
