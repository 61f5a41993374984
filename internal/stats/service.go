package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siege-stats/internal/cache"
	"github.com/siege-stats/internal/domain"
)

// Publisher emits stats events to an external stream
type Publisher interface {
	PublishStatsEvent(ctx context.Context, event domain.StatsEvent) error
}

// Broadcaster pushes refreshed stats to connected subscribers
type Broadcaster interface {
	BroadcastStatsUpdate(username string, platform domain.Platform, stats *domain.PlayerStats)
}

// Service is the public entry point: cache lookup, aggregation on
// miss, best-effort cache write, and best-effort fan-out of events.
type Service struct {
	aggregator *Aggregator
	cache      cache.Store
	publisher  Publisher
	hub        Broadcaster
	logger     *slog.Logger
}

// NewService creates a stats service over the aggregator and cache
func NewService(aggregator *Aggregator, store cache.Store, logger *slog.Logger) *Service {
	return &Service{
		aggregator: aggregator,
		cache:      store,
		logger:     logger,
	}
}

// SetPublisher sets the event publisher for live fetches
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// SetHub sets the broadcaster for live fetches
func (s *Service) SetHub(hub Broadcaster) {
	s.hub = hub
}

// GetPlayerStats returns a player's stats, served from cache while
// fresh and aggregated live on a miss.
func (s *Service) GetPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	cached, err := s.cache.Get(ctx, username, platform)
	if err != nil {
		// A failing cache backend degrades to a live fetch
		s.logger.Warn("cache read failed", "username", username, "platform", platform, "error", err)
	}
	if cached != nil {
		s.logger.Debug("cache hit", "username", username, "platform", platform)
		return cached, nil
	}

	stats, err := s.aggregator.ByUsername(ctx, platform, username)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}

	// Cache under the requested name, not the resolved display name:
	// the search can resolve a differently-spelled name, and the next
	// identical query must still hit.
	s.finishLiveFetch(ctx, username, stats)
	return stats, nil
}

// GetPlayerStatsByProfileID always performs a live fetch, then primes
// the cache under the resolved username so a subsequent name-based
// lookup can hit.
func (s *Service) GetPlayerStatsByProfileID(ctx context.Context, profileID string, platform domain.Platform) (*domain.PlayerStats, error) {
	stats, err := s.aggregator.ByProfileID(ctx, platform, profileID)
	if err != nil {
		return nil, fmt.Errorf("get player stats by profile id: %w", err)
	}

	s.finishLiveFetch(ctx, stats.Username, stats)
	return stats, nil
}

// RefreshPlayerStats bypasses the cache read and re-aggregates by
// username. Used by the background refresh worker.
func (s *Service) RefreshPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	stats, err := s.aggregator.ByUsername(ctx, platform, username)
	if err != nil {
		return nil, fmt.Errorf("refresh player stats: %w", err)
	}

	s.finishLiveFetch(ctx, username, stats)
	return stats, nil
}

// finishLiveFetch runs the best-effort side effects of a successful
// live fetch: cache write under cacheUsername, event publish,
// subscriber broadcast. None of them may fail the request; the
// computed stats always reach the caller.
func (s *Service) finishLiveFetch(ctx context.Context, cacheUsername string, stats *domain.PlayerStats) {
	if err := s.cache.Put(ctx, cacheUsername, stats.Platform, stats); err != nil {
		s.logger.Warn("cache write failed",
			"username", cacheUsername,
			"platform", stats.Platform,
			"error", err,
		)
	}

	if s.publisher != nil {
		event := domain.StatsEvent{
			Type:      domain.EventStatsRefreshed,
			Username:  stats.Username,
			Platform:  stats.Platform,
			Stats:     stats,
			Timestamp: time.Now(),
		}
		if err := s.publisher.PublishStatsEvent(ctx, event); err != nil {
			s.logger.Warn("failed to publish stats event", "username", stats.Username, "error", err)
		}
	}

	if s.hub != nil {
		s.hub.BroadcastStatsUpdate(stats.Username, stats.Platform, stats)
	}
}
