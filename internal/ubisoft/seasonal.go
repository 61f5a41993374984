package ubisoft

// SeasonalPayload is the nested seasonal statistics structure returned
// by the player-stats endpoint: platform group, then game modes, then
// team roles, then the stat detail block. Every level is optional for
// players without ranked history.
type SeasonalPayload struct {
	Platforms map[string]SeasonalPlatform `json:"platforms"`
}

// SeasonalPlatform groups game-mode stats for one platform family
type SeasonalPlatform struct {
	GameModes []GameMode `json:"gameModes"`
}

// GameMode is one game-mode entry (casual, ranked, ...)
type GameMode struct {
	Type      string     `json:"type"`
	TeamRoles []TeamRole `json:"teamRoles"`
}

// TeamRole is one team-role entry (all, attacker, defender)
type TeamRole struct {
	Type        string       `json:"type"`
	StatsDetail *StatsDetail `json:"statsDetail"`
}

// StatsDetail wraps the ranked stat block
type StatsDetail struct {
	Ranked *RankedStats `json:"ranked"`
}

// RankedStats is the ranked stat block the aggregator consumes
type RankedStats struct {
	MMR         int `json:"mmr"`
	Kills       int `json:"kills"`
	Deaths      int `json:"deaths"`
	MatchesWon  int `json:"matchesWon"`
	MatchesLost int `json:"matchesLost"`
}

// Ranked walks the payload to the ranked stat block for the "all" team
// role of the single platform present. Any missing level returns nil;
// the caller treats that as a player with no ranked history, not an
// error.
func (p *SeasonalPayload) Ranked() *RankedStats {
	if p == nil {
		return nil
	}
	for _, platform := range p.Platforms {
		for _, mode := range platform.GameModes {
			if mode.Type != "ranked" {
				continue
			}
			for _, role := range mode.TeamRoles {
				if role.Type != "all" {
					continue
				}
				if role.StatsDetail == nil {
					return nil
				}
				return role.StatsDetail.Ranked
			}
		}
	}
	return nil
}
