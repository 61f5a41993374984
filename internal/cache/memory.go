package cache

import (
	"context"
	"sync"
	"time"

	"github.com/siege-stats/internal/domain"
)

type memoryEntry struct {
	stats     *domain.PlayerStats
	expiresAt time.Time
}

// Memory is a mutex-guarded in-process Store. There is no background
// sweeper; expired entries are removed lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory store with the given TTL
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached stats for a player, evicting the entry if it
// has expired. The result is a copy; mutating it does not touch the
// stored entry.
func (m *Memory) Get(ctx context.Context, username string, platform domain.Platform) (*domain.PlayerStats, error) {
	key := Key(username, platform)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, nil
	}
	stats := *entry.stats
	return &stats, nil
}

// Put stores the stats, overwriting any existing entry for the key
func (m *Memory) Put(ctx context.Context, username string, platform domain.Platform, stats *domain.PlayerStats) error {
	key := Key(username, platform)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		stats:     stats,
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

// Len reports the number of live entries, expired or not
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
