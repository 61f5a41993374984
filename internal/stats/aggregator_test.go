package stats

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siege-stats/internal/domain"
	"github.com/siege-stats/internal/ubisoft"
)

type fakeVendor struct {
	findUserByName func(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error)
	userProfile    func(ctx context.Context, profileID string) (*domain.Identity, error)
	progression    func(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, error)
	seasonalStats  func(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error)

	calls int32
}

func (f *fakeVendor) FindUserByName(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.findUserByName(ctx, platform, username)
}

func (f *fakeVendor) UserProfile(ctx context.Context, profileID string) (*domain.Identity, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.userProfile(ctx, profileID)
}

func (f *fakeVendor) Progression(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.progression(ctx, platform, profileID)
}

func (f *fakeVendor) SeasonalStats(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.seasonalStats(ctx, platform, profileID, seasonID)
}

func (f *fakeVendor) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func seasonalPayload(ranked *ubisoft.RankedStats) *ubisoft.SeasonalPayload {
	return &ubisoft.SeasonalPayload{
		Platforms: map[string]ubisoft.SeasonalPlatform{
			"PC": {GameModes: []ubisoft.GameMode{{
				Type: "ranked",
				TeamRoles: []ubisoft.TeamRole{{
					Type:        "all",
					StatsDetail: &ubisoft.StatsDetail{Ranked: ranked},
				}},
			}}},
		},
	}
}

func happyVendor() *fakeVendor {
	return &fakeVendor{
		findUserByName: func(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error) {
			return &domain.Identity{ProfileID: "p-123", NameOnPlatform: "e.ki", PlatformType: "uplay"}, nil
		},
		userProfile: func(ctx context.Context, profileID string) (*domain.Identity, error) {
			return &domain.Identity{ProfileID: profileID, NameOnPlatform: "e.ki", PlatformType: "uplay"}, nil
		},
		progression: func(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, error) {
			return &ubisoft.Progression{Level: 287, XP: 81234}, nil
		},
		seasonalStats: func(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error) {
			return seasonalPayload(&ubisoft.RankedStats{
				MMR: 3521, Kills: 420, Deaths: 380, MatchesWon: 51, MatchesLost: 43,
			}), nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestAggregateByUsername(t *testing.T) {
	aggregator := NewAggregator(happyVendor(), discardLogger())

	stats, err := aggregator.ByUsername(context.Background(), domain.PlatformPC, "e.ki")
	require.NoError(t, err)

	assert.Equal(t, "e.ki", stats.Username)
	assert.Equal(t, domain.PlatformPC, stats.Platform)
	assert.Equal(t, 3521, stats.MMR)
	assert.Equal(t, "Emerald II", stats.RankName)
	assert.Equal(t, 420, stats.Kills)
	assert.Equal(t, 380, stats.Deaths)
	assert.InDelta(t, 1.11, stats.KD, 1e-9)
	assert.Equal(t, 51, stats.Wins)
	assert.Equal(t, 43, stats.Losses)
	assert.InDelta(t, 54.3, stats.WinRate, 1e-9)
	assert.Equal(t, 287, stats.Level)
}

func TestAggregatePlayerNotFound(t *testing.T) {
	vendor := happyVendor()
	vendor.findUserByName = func(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error) {
		return nil, nil
	}
	aggregator := NewAggregator(vendor, discardLogger())

	_, err := aggregator.ByUsername(context.Background(), domain.PlatformPC, "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.Contains(t, err.Error(), "ghost")
	assert.Contains(t, err.Error(), "pc")
	assert.Equal(t, int32(1), vendor.callCount(), "no stats fetch after a failed resolution")
}

func TestAggregateNoRankedHistory(t *testing.T) {
	vendor := happyVendor()
	vendor.seasonalStats = func(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error) {
		return &ubisoft.SeasonalPayload{
			Platforms: map[string]ubisoft.SeasonalPlatform{
				"PC": {GameModes: []ubisoft.GameMode{{Type: "casual"}}},
			},
		}, nil
	}
	aggregator := NewAggregator(vendor, discardLogger())

	stats, err := aggregator.ByUsername(context.Background(), domain.PlatformPC, "e.ki")
	require.NoError(t, err, "missing ranked history is not an error")

	assert.Equal(t, 0, stats.Kills)
	assert.Equal(t, 0, stats.Deaths)
	assert.Equal(t, 0, stats.Wins)
	assert.Equal(t, 0, stats.Losses)
	assert.Zero(t, stats.KD)
	assert.Zero(t, stats.WinRate)
	assert.Equal(t, "Unranked", stats.RankName)
	assert.Equal(t, 287, stats.Level, "progression still applies")
}

func TestAggregateSeasonalFailureAborts(t *testing.T) {
	upstream := &domain.VendorError{
		Kind:   domain.ErrSeasonalFetch,
		Status: http.StatusInternalServerError,
		Text:   "Internal Server Error",
	}
	vendor := happyVendor()
	vendor.seasonalStats = func(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error) {
		return nil, upstream
	}
	aggregator := NewAggregator(vendor, discardLogger())

	stats, err := aggregator.ByUsername(context.Background(), domain.PlatformPC, "e.ki")
	require.Error(t, err)
	assert.Nil(t, stats, "no partial result on a failed branch")
	assert.ErrorIs(t, err, domain.ErrSeasonalFetch)

	var ve *domain.VendorError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, http.StatusInternalServerError, ve.Status)
}

func TestAggregateProgressionFailureAborts(t *testing.T) {
	vendor := happyVendor()
	vendor.progression = func(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, error) {
		return nil, &domain.VendorError{Kind: domain.ErrProgressionFetch, Status: http.StatusBadGateway, Text: "Bad Gateway"}
	}
	aggregator := NewAggregator(vendor, discardLogger())

	_, err := aggregator.ByUsername(context.Background(), domain.PlatformPC, "e.ki")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProgressionFetch)
}

func TestAggregateByProfileID(t *testing.T) {
	vendor := happyVendor()
	aggregator := NewAggregator(vendor, discardLogger())

	stats, err := aggregator.ByProfileID(context.Background(), domain.PlatformPC, "p-123")
	require.NoError(t, err)

	assert.Equal(t, "e.ki", stats.Username, "display name comes from the profile fetch")
	assert.Equal(t, 3521, stats.MMR)
	assert.Equal(t, int32(3), vendor.callCount(), "profile, progression and seasonal fetches only")
}

func TestAggregateByProfileIDUnknownProfile(t *testing.T) {
	vendor := happyVendor()
	vendor.userProfile = func(ctx context.Context, profileID string) (*domain.Identity, error) {
		return nil, nil
	}
	aggregator := NewAggregator(vendor, discardLogger())

	stats, err := aggregator.ByProfileID(context.Background(), domain.PlatformPC, "p-404")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", stats.Username)
}

func TestKillDeathRatio(t *testing.T) {
	tests := []struct {
		kills, deaths int
		want          float64
	}{
		{0, 0, 0},
		{7, 0, 7},
		{10, 4, 2.5},
		{420, 380, 1.11},
		{1, 3, 0.33},
	}
	for _, tt := range tests {
		if got := killDeathRatio(tt.kills, tt.deaths); got != tt.want {
			t.Errorf("killDeathRatio(%d, %d) = %v, want %v", tt.kills, tt.deaths, got, tt.want)
		}
	}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		wins, losses int
		want         float64
	}{
		{0, 0, 0},
		{1, 0, 100},
		{0, 5, 0},
		{51, 43, 54.3},
		{1, 2, 33.3},
	}
	for _, tt := range tests {
		got := winRate(tt.wins, tt.losses)
		if got != tt.want {
			t.Errorf("winRate(%d, %d) = %v, want %v", tt.wins, tt.losses, got, tt.want)
		}
		if got < 0 || got > 100 {
			t.Errorf("winRate(%d, %d) = %v, out of [0,100]", tt.wins, tt.losses, got)
		}
	}
}
