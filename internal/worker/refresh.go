// Package worker runs the periodic stats refresh for tracked players.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// Refresher re-aggregates a player's stats, bypassing the cache read
type Refresher interface {
	RefreshPlayerStats(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error)
}

// TrackedLister lists the players enrolled for background refresh
type TrackedLister interface {
	ListTrackedPlayers(ctx context.Context) ([]domain.TrackedPlayer, error)
}

// RefreshWorker periodically refreshes the stats of tracked players so
// cached entries stay warm between requests
type RefreshWorker struct {
	service Refresher
	tracked TrackedLister
	config  *config.RefreshConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(
	service Refresher,
	tracked TrackedLister,
	cfg *config.RefreshConfig,
	logger *slog.Logger,
) *RefreshWorker {
	return &RefreshWorker{
		service: service,
		tracked: tracked,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresh worker stopped")
	return nil
}

// run is the main worker loop
func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll refreshes every tracked player. A failed player is logged
// and skipped; the cycle always visits the full list.
func (w *RefreshWorker) refreshAll(ctx context.Context) {
	w.logger.Info("starting refresh cycle")
	startTime := time.Now()

	players, err := w.tracked.ListTrackedPlayers(ctx)
	if err != nil {
		w.logger.Error("failed to list tracked players", "error", err)
		return
	}

	refreshedCount := 0
	errorCount := 0

	for _, player := range players {
		if _, err := w.service.RefreshPlayerStats(ctx, player.Username, player.Platform); err != nil {
			w.logger.Error("failed to refresh player",
				"username", player.Username,
				"platform", player.Platform,
				"error", err,
			)
			errorCount++
		} else {
			refreshedCount++
		}
	}

	duration := time.Since(startTime)
	w.logger.Info("refresh cycle completed",
		"duration", duration,
		"refreshed", refreshedCount,
		"errors", errorCount,
	)
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle (useful for manual triggers)
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.refreshAll(ctx)
}
