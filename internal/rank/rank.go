// Package rank derives a competitive rank tier from a raw MMR score.
package rank

import (
	"fmt"
	"strings"
)

// Rank is a resolved competitive tier
type Rank struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Unranked is returned for scores below the lowest threshold
const Unranked = "Unranked"

// threshold table, evaluated top-down; first match wins
var thresholds = []struct {
	min  int
	name string
}{
	{5000, "Champion"},
	{4400, "Diamond I"},
	{4200, "Diamond II"},
	{4000, "Diamond III"},
	{3700, "Emerald I"},
	{3500, "Emerald II"},
	{3300, "Emerald III"},
	{3000, "Platinum I"},
	{2800, "Platinum II"},
	{2600, "Platinum III"},
	{2400, "Gold I"},
	{2200, "Gold II"},
	{2000, "Gold III"},
	{1800, "Silver I"},
	{1600, "Silver II"},
	{1400, "Silver III"},
	{1200, "Bronze I"},
	{1000, "Bronze II"},
	{800, "Bronze III"},
	{600, "Copper I"},
	{400, "Copper II"},
	{200, "Copper III"},
}

var divisionNumbers = map[string]string{
	"I":   "01",
	"II":  "02",
	"III": "03",
	"IV":  "04",
	"V":   "05",
}

// FromScore maps an MMR score to its rank tier. It is total: any score,
// including zero and negatives, resolves to a rank.
func FromScore(score int) Rank {
	for _, t := range thresholds {
		if score >= t.min {
			return Rank{Name: t.name, Icon: iconFile(t.name)}
		}
	}
	return Rank{Name: Unranked, Icon: "unranked.png"}
}

// iconFile builds the rank icon asset filename from a tier name.
func iconFile(name string) string {
	parts := strings.SplitN(name, " ", 2)
	band := parts[0]
	division := "I"
	if len(parts) == 2 {
		division = parts[1]
	}

	number, ok := divisionNumbers[division]
	if !ok {
		number = "01"
	}

	// The Gold assets are the one band shipped with an upper-cased
	// identifier; the lookup is case-sensitive, so it must stay that way.
	if band == "Gold" {
		band = "GOLD"
	}

	return fmt.Sprintf("RANK_500x500%s_%s.png", band, number)
}
