package models

import (
	"fmt"
	"strings"
)

// subLineToken compresses a sub-line name into the short token printed
// inside QR codes: "Washing 1" -> "W1", "Extrusion 3" -> "E3",
// "Mixture" -> "MIX", crusher lines keep their uppercased name.
func subLineToken(subLine string) string {
	switch {
	case subLine == "":
		return ""
	case strings.HasPrefix(subLine, "Washing "):
		return "W" + strings.TrimPrefix(subLine, "Washing ")
	case strings.HasPrefix(subLine, "Extrusion "):
		return "E" + strings.TrimPrefix(subLine, "Extrusion ")
	case subLine == "Mixture":
		return "MIX"
	default:
		return strings.ToUpper(subLine)
	}
}

// FormatBagQr builds an output bag QR. The label encodes producing
// station, sub-line, owning shift and a per-station/sub-line/shift
// sequence so operators can read provenance straight off the bag.
// The shift segment keeps codes globally unique across shifts.
func FormatBagQr(stationID int, subLine string, shiftID, seq int) string {
	token := subLineToken(subLine)
	if token == "" {
		return fmt.Sprintf("%s-%d-%03d", StationCode(stationID), shiftID, seq)
	}
	return fmt.Sprintf("%s-%s-%d-%03d", StationCode(stationID), token, shiftID, seq)
}

// StationDisplayName is the human form printed on labels:
// "Crusher-3E", "Washing-W1", "Extrusion-E2".
func StationDisplayName(stationID int, stationName, subLine string) string {
	token := subLineToken(subLine)
	if token == "" {
		return stationName
	}
	return stationName + "-" + token
}
