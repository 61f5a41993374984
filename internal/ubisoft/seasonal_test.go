package ubisoft

import "testing"

func TestRankedExtraction(t *testing.T) {
	block := &RankedStats{MMR: 2800, Kills: 10, Deaths: 5, MatchesWon: 3, MatchesLost: 2}

	tests := []struct {
		name    string
		payload *SeasonalPayload
		want    *RankedStats
	}{
		{
			name:    "nil payload",
			payload: nil,
			want:    nil,
		},
		{
			name:    "no platforms",
			payload: &SeasonalPayload{},
			want:    nil,
		},
		{
			name: "no game modes",
			payload: &SeasonalPayload{Platforms: map[string]SeasonalPlatform{
				"PC": {},
			}},
			want: nil,
		},
		{
			name: "no ranked mode",
			payload: &SeasonalPayload{Platforms: map[string]SeasonalPlatform{
				"PC": {GameModes: []GameMode{{Type: "casual"}}},
			}},
			want: nil,
		},
		{
			name: "ranked mode without all role",
			payload: &SeasonalPayload{Platforms: map[string]SeasonalPlatform{
				"PC": {GameModes: []GameMode{{
					Type:      "ranked",
					TeamRoles: []TeamRole{{Type: "attacker"}},
				}}},
			}},
			want: nil,
		},
		{
			name: "all role without stats detail",
			payload: &SeasonalPayload{Platforms: map[string]SeasonalPlatform{
				"PC": {GameModes: []GameMode{{
					Type:      "ranked",
					TeamRoles: []TeamRole{{Type: "all"}},
				}}},
			}},
			want: nil,
		},
		{
			name: "full chain",
			payload: &SeasonalPayload{Platforms: map[string]SeasonalPlatform{
				"PC": {GameModes: []GameMode{
					{Type: "casual"},
					{
						Type: "ranked",
						TeamRoles: []TeamRole{
							{Type: "defender"},
							{Type: "all", StatsDetail: &StatsDetail{Ranked: block}},
						},
					},
				}},
			}},
			want: block,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.payload.Ranked()
			if got != tt.want {
				t.Errorf("Ranked() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
