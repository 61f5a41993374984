// Package postgres implements the durable stats cache and the
// tracked-players registry on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	ttl    time.Duration
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, ttl time.Duration, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS stats_cache (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			platform VARCHAR(16) NOT NULL,
			stats JSONB NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			UNIQUE(username, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS tracked_players (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			platform VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(username, platform)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_cache_expires ON stats_cache(expires_at)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// Get returns the cached stats for a player. An entry past its
// expires_at is deleted and reported as a miss.
func (r *Repository) Get(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	query := `
		SELECT id, stats, expires_at
		FROM stats_cache
		WHERE username = $1 AND platform = $2
	`
	var (
		id        int64
		data      []byte
		expiresAt time.Time
	)
	err := r.pool.QueryRow(ctx, query, strings.ToLower(username), string(platform)).Scan(&id, &data, &expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cached stats: %w", err)
	}

	if time.Now().After(expiresAt) {
		if _, err := r.pool.Exec(ctx, `DELETE FROM stats_cache WHERE id = $1`, id); err != nil {
			r.logger.Warn("failed to evict expired cache entry", "id", id, "error", err)
		}
		return nil, nil
	}

	var stats domain.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decoding cached stats: %w", err)
	}
	return &stats, nil
}

// Put inserts or refreshes the cache entry for a player
func (r *Repository) Put(ctx context.Context, username string, platform domain.Platform, stats *domain.PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	query := `
		INSERT INTO stats_cache (username, platform, stats, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username, platform)
		DO UPDATE SET stats = $3, cached_at = $4, expires_at = $5
	`
	now := time.Now()
	_, err = r.pool.Exec(ctx, query,
		strings.ToLower(username),
		string(platform),
		data,
		now,
		now.Add(r.ttl),
	)
	if err != nil {
		return fmt.Errorf("caching stats: %w", err)
	}
	return nil
}

// TrackPlayer registers a player for background refresh
func (r *Repository) TrackPlayer(ctx context.Context, username string, platform domain.Platform) error {
	query := `
		INSERT INTO tracked_players (username, platform)
		VALUES ($1, $2)
		ON CONFLICT (username, platform) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, strings.ToLower(username), string(platform))
	if err != nil {
		return fmt.Errorf("tracking player: %w", err)
	}
	return nil
}

// UntrackPlayer removes a player from the refresh registry
func (r *Repository) UntrackPlayer(ctx context.Context, username string, platform domain.Platform) error {
	query := `DELETE FROM tracked_players WHERE username = $1 AND platform = $2`
	result, err := r.pool.Exec(ctx, query, strings.ToLower(username), string(platform))
	if err != nil {
		return fmt.Errorf("untracking player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// ListTrackedPlayers returns every player registered for refresh
func (r *Repository) ListTrackedPlayers(ctx context.Context) ([]domain.TrackedPlayer, error) {
	query := `
		SELECT username, platform, created_at
		FROM tracked_players
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing tracked players: %w", err)
	}
	defer rows.Close()

	var players []domain.TrackedPlayer
	for rows.Next() {
		var p domain.TrackedPlayer
		var platform string
		if err := rows.Scan(&p.Username, &platform, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tracked player: %w", err)
		}
		p.Platform = domain.Platform(platform)
		players = append(players, p)
	}
	return players, nil
}
