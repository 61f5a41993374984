// Package stats assembles aggregated player statistics from the
// Ubisoft API and fronts them with a cached service façade.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/siege-stats/internal/domain"
	"github.com/siege-stats/internal/rank"
	"github.com/siege-stats/internal/ubisoft"
)

// currentSeason selects the running season by provider convention
const currentSeason = -1

// VendorAPI is the slice of the Ubisoft client the aggregator needs
type VendorAPI interface {
	FindUserByName(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error)
	UserProfile(ctx context.Context, profileID string) (*domain.Identity, error)
	Progression(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, error)
	SeasonalStats(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*ubisoft.SeasonalPayload, error)
}

// Aggregator resolves a player identity and joins the progression and
// seasonal fetches into one PlayerStats record.
type Aggregator struct {
	api    VendorAPI
	logger *slog.Logger
}

// NewAggregator creates an aggregator over the given vendor API
func NewAggregator(api VendorAPI, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		api:    api,
		logger: logger,
	}
}

// ByUsername resolves the identity by display name, then aggregates.
// A search that succeeds with no match is a not-found outcome, not a
// transport failure.
func (a *Aggregator) ByUsername(ctx context.Context, platform domain.Platform, username string) (*domain.PlayerStats, error) {
	identity, err := a.api.FindUserByName(ctx, platform, username)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats for %q on %s: %w", username, platform, err)
	}
	if identity == nil {
		return nil, fmt.Errorf("player %q on %s: %w", username, platform, domain.ErrPlayerNotFound)
	}

	a.logger.Debug("resolved player identity",
		"username", identity.NameOnPlatform,
		"profile_id", identity.ProfileID,
	)

	progression, seasonal, err := a.fetchStats(ctx, platform, identity.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats for %q on %s: %w", username, platform, err)
	}

	return a.assemble(identity.NameOnPlatform, platform, progression, seasonal), nil
}

// ByProfileID skips name resolution and fetches the profile info
// concurrently with the stats calls.
func (a *Aggregator) ByProfileID(ctx context.Context, platform domain.Platform, profileID string) (*domain.PlayerStats, error) {
	var (
		identity    *domain.Identity
		progression *ubisoft.Progression
		seasonal    *ubisoft.SeasonalPayload
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		identity, err = a.api.UserProfile(gctx, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		progression, err = a.api.Progression(gctx, platform, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		seasonal, err = a.api.SeasonalStats(gctx, platform, profileID, currentSeason)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregating stats for profile %q on %s: %w", profileID, platform, err)
	}

	username := "Unknown"
	if identity != nil {
		username = identity.NameOnPlatform
	}

	return a.assemble(username, platform, progression, seasonal), nil
}

// fetchStats issues the progression and seasonal fetches concurrently.
// Both must complete; the first failure cancels the other and
// propagates, so no partial result is ever assembled.
func (a *Aggregator) fetchStats(ctx context.Context, platform domain.Platform, profileID string) (*ubisoft.Progression, *ubisoft.SeasonalPayload, error) {
	var (
		progression *ubisoft.Progression
		seasonal    *ubisoft.SeasonalPayload
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		progression, err = a.api.Progression(gctx, platform, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		seasonal, err = a.api.SeasonalStats(gctx, platform, profileID, currentSeason)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return progression, seasonal, nil
}

// assemble builds the PlayerStats record. A missing ranked block means
// a player without ranked history: all ranked fields stay zero and the
// tier resolves to Unranked.
func (a *Aggregator) assemble(username string, platform domain.Platform, progression *ubisoft.Progression, seasonal *ubisoft.SeasonalPayload) *domain.PlayerStats {
	var mmr, kills, deaths, wins, losses int
	if ranked := seasonal.Ranked(); ranked != nil {
		mmr = ranked.MMR
		kills = ranked.Kills
		deaths = ranked.Deaths
		wins = ranked.MatchesWon
		losses = ranked.MatchesLost
	}

	level := 0
	if progression != nil {
		level = progression.Level
	}

	tier := rank.FromScore(mmr)

	return &domain.PlayerStats{
		Username: username,
		Platform: platform,
		RankName: tier.Name,
		RankIcon: tier.Icon,
		MMR:      mmr,
		KD:       killDeathRatio(kills, deaths),
		WinRate:  winRate(wins, losses),
		Kills:    kills,
		Deaths:   deaths,
		Wins:     wins,
		Losses:   losses,
		Level:    level,
	}
}

// killDeathRatio is kills/deaths rounded to 2 decimal places, or the
// raw kill count when the player has no deaths
func killDeathRatio(kills, deaths int) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return math.Round(float64(kills)/float64(deaths)*100) / 100
}

// winRate is the win percentage rounded to 1 decimal place, zero when
// no matches were played
func winRate(wins, losses int) float64 {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(total)*1000) / 10
}
