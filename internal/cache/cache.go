// Package cache defines the result cache contract and an in-memory
// implementation. Redis and PostgreSQL backed stores live in their own
// packages and satisfy the same interface.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/siege-stats/internal/domain"
)

// Store caches aggregated player stats keyed by (username, platform).
// Get returns (nil, nil) on a miss; an expired entry is evicted on
// read and reported as a miss. Put has upsert semantics.
type Store interface {
	Get(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
	Put(ctx context.Context, username string, platform domain.Platform, stats *domain.PlayerStats) error
}

// Key builds the normalized cache key for a player. Usernames are
// case-insensitive on every platform, so the key is lowercased.
func Key(username string, platform domain.Platform) string {
	return fmt.Sprintf("stats:%s:%s", platform, strings.ToLower(username))
}
