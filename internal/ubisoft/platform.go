package ubisoft

import "github.com/siege-stats/internal/domain"

// platformTypes maps public platform names to Ubisoft platform types
var platformTypes = map[domain.Platform]string{
	domain.PlatformPC:  "uplay",
	domain.PlatformPSN: "psn",
	domain.PlatformXBL: "xbl",
}

// spaceIDs maps Ubisoft platform types to their space identifiers
var spaceIDs = map[string]string{
	"uplay": "5172a557-50b5-4665-b7db-e3f2e8c5041d",
	"psn":   "05bfb3f7-6c21-4c42-be1f-97a33fb5cf66",
	"xbl":   "98a601e5-ca91-4440-b1c5-753f601a2c90",
}

// sandboxIDs maps Ubisoft platform types to their sandbox identifiers
var sandboxIDs = map[string]string{
	"uplay": "OSBOR_PC_LNCH_A",
	"psn":   "OSBOR_PS4_LNCH_A",
	"xbl":   "OSBOR_XBOXONE_LNCH_A",
}

// PlatformType returns the Ubisoft platform type for a public platform
// name, defaulting to uplay for unknown input.
func PlatformType(p domain.Platform) string {
	if t, ok := platformTypes[p]; ok {
		return t
	}
	return "uplay"
}
