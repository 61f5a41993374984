// Package ubisoft implements the client for the Ubisoft public API:
// session authentication, profile lookups, progression and seasonal
// statistics.
package ubisoft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/siege-stats/internal/config"
	"github.com/siege-stats/internal/domain"
)

// Client performs the read operations against the Ubisoft API using
// the credential cached by the Authenticator.
type Client struct {
	httpClient      *http.Client
	auth            *Authenticator
	appID           string
	profilesBaseURL string
	statsBaseURL    string
	logger          *slog.Logger
}

// NewClient creates a query client sharing the given authenticator
func NewClient(cfg *config.UbisoftConfig, auth *Authenticator, logger *slog.Logger) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		auth:            auth,
		appID:           cfg.AppID,
		profilesBaseURL: cfg.ProfilesBaseURL,
		statsBaseURL:    cfg.StatsBaseURL,
		logger:          logger,
	}
}

type profilesResponse struct {
	Profiles []domain.Identity `json:"profiles"`
}

// Progression is a player's level and experience
type Progression struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
}

type progressionResponse struct {
	PlayerProfiles []Progression `json:"player_profiles"`
}

// FindUserByName searches profiles by display name on a platform and
// returns the first match, or nil when the result list is empty.
func (c *Client) FindUserByName(ctx context.Context, platform domain.Platform, username string) (*domain.Identity, error) {
	endpoint := fmt.Sprintf("%s/v3/profiles?namesOnPlatform=%s&platformType=%s",
		c.profilesBaseURL, url.QueryEscape(username), PlatformType(platform))

	body, err := c.get(ctx, endpoint, domain.ErrLookupFailed, nil)
	if err != nil {
		return nil, err
	}

	var result profilesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding profiles response: %w", err)
	}
	if len(result.Profiles) == 0 {
		return nil, nil
	}
	return &result.Profiles[0], nil
}

// UserProfile resolves a player identity from a profile id
func (c *Client) UserProfile(ctx context.Context, profileID string) (*domain.Identity, error) {
	endpoint := fmt.Sprintf("%s/v3/profiles?profileIds=%s", c.profilesBaseURL, url.QueryEscape(profileID))

	body, err := c.get(ctx, endpoint, domain.ErrLookupFailed, nil)
	if err != nil {
		return nil, err
	}

	var result profilesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding profiles response: %w", err)
	}
	if len(result.Profiles) == 0 {
		return nil, nil
	}
	return &result.Profiles[0], nil
}

// Progression fetches a player's level and XP. Returns nil when the
// upstream reports no profile for the id.
func (c *Client) Progression(ctx context.Context, platform domain.Platform, profileID string) (*Progression, error) {
	platformType := PlatformType(platform)
	endpoint := fmt.Sprintf("%s/v1/spaces/%s/sandboxes/%s/r6playerprofile/playerprofile/progressions?profile_ids=%s",
		c.profilesBaseURL, spaceIDs[platformType], sandboxIDs[platformType], url.QueryEscape(profileID))

	body, err := c.get(ctx, endpoint, domain.ErrProgressionFetch, nil)
	if err != nil {
		return nil, err
	}

	var result progressionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding progression response: %w", err)
	}
	if len(result.PlayerProfiles) == 0 {
		return nil, nil
	}
	return &result.PlayerProfiles[0], nil
}

// SeasonalStats fetches the per-season summary statistics for a
// player. seasonID -1 selects the current season by provider
// convention.
func (c *Client) SeasonalStats(ctx context.Context, platform domain.Platform, profileID string, seasonID int) (*SeasonalPayload, error) {
	platformType := PlatformType(platform)
	endpoint := fmt.Sprintf("%s/v1/profiles/%s/playerstats?spaceId=%s&view=seasonal&aggregation=summary&gameMode=all&platformGroup=pc&seasons=%d",
		c.statsBaseURL, url.QueryEscape(profileID), spaceIDs[platformType], seasonID)

	// This endpoint additionally requires the credential expiration header
	body, err := c.get(ctx, endpoint, domain.ErrSeasonalFetch, func(req *http.Request, cred *domain.Credential) {
		req.Header.Set("Expiration", cred.Expiration.UTC().Format(time.RFC3339))
	})
	if err != nil {
		return nil, err
	}

	var payload SeasonalPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding seasonal response: %w", err)
	}
	return &payload, nil
}

// get performs an authenticated GET and classifies non-success
// responses under the given error kind.
func (c *Client) get(ctx context.Context, endpoint string, kind error, decorate func(*http.Request, *domain.Credential)) ([]byte, error) {
	cred, err := c.auth.Credential(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Ubi_v1 t="+cred.Ticket)
	req.Header.Set("Ubi-AppId", c.appID)
	req.Header.Set("Ubi-SessionId", cred.SessionID)
	if decorate != nil {
		decorate(req, cred)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures and timeouts classify the same as a
		// non-success status
		return nil, fmt.Errorf("%w: %v", kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ubisoft api error",
			"endpoint", req.URL.Path,
			"status", resp.StatusCode,
		)
		return nil, &domain.VendorError{
			Kind:   kind,
			Status: resp.StatusCode,
			Text:   http.StatusText(resp.StatusCode),
			Body:   string(body),
		}
	}

	return body, nil
}
