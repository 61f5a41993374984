package domain

import (
	"fmt"
	"time"
)

// Platform is the public platform selector accepted by the service
type Platform string

const (
	PlatformPC  Platform = "pc"
	PlatformPSN Platform = "psn"
	PlatformXBL Platform = "xbl"
)

// ParsePlatform validates a platform string supplied by an external caller
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformPC, PlatformPSN, PlatformXBL:
		return Platform(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
}

// Credential is a bearer session obtained from the Ubisoft auth endpoint.
// It lives in process memory only and is replaced lazily after expiry.
type Credential struct {
	Ticket     string
	SessionID  string
	Expiration time.Time
}

// Valid reports whether the credential expiration is strictly in the future
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.Expiration.After(now)
}

// Identity is a resolved player identity from the Ubisoft profile service
type Identity struct {
	ProfileID      string `json:"profileId"`
	NameOnPlatform string `json:"nameOnPlatform"`
	PlatformType   string `json:"platformType"`
}

// PlayerStats is the aggregated result served to callers
type PlayerStats struct {
	Username    string   `json:"username"`
	Platform    Platform `json:"platform"`
	RankName    string   `json:"rank_name"`
	RankIcon    string   `json:"rank_icon"`
	MMR         int      `json:"mmr"`
	KD          float64  `json:"kd"`
	WinRate     float64  `json:"win_rate"`
	Kills       int      `json:"kills"`
	Deaths      int      `json:"deaths"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	HoursPlayed int      `json:"hours_played"`
	Level       int      `json:"level"`
}

// TrackedPlayer is a player registered for periodic background refresh
type TrackedPlayer struct {
	Username  string    `json:"username"`
	Platform  Platform  `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// Event types published after live fetches
const (
	EventStatsRefreshed = "stats.refreshed"
)

// StatsEvent is emitted after every successful live fetch
type StatsEvent struct {
	Type      string       `json:"type"`
	Username  string       `json:"username"`
	Platform  Platform     `json:"platform"`
	Stats     *PlayerStats `json:"stats"`
	Timestamp time.Time    `json:"timestamp"`
}
