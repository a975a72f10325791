package models

// Station IDs are fixed reference data, seeded by migration 002 and never
// reassigned. The whole chain-of-custody model keys off them.
const (
	StationLabelRemoval   = 1
	StationCrusher        = 2
	StationWashing        = 3
	StationExtrusion      = 4
	StationFinalPackaging = 5
)

type Station struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// upstreamOf declares which station's pending batches feed each station.
// Label Removal and Crusher take continuous, untracked input.
var upstreamOf = map[int]int{
	StationWashing:        StationCrusher,
	StationExtrusion:      StationWashing,
	StationFinalPackaging: StationExtrusion,
}

// UpstreamOf returns the station whose output batches this station consumes,
// or 0 if the station's input is untracked.
func UpstreamOf(stationID int) int {
	return upstreamOf[stationID]
}

// EnforcesUpstream reports whether the station may only consume batches from
// its declared upstream station.
func EnforcesUpstream(stationID int) bool {
	_, ok := upstreamOf[stationID]
	return ok
}

// subLines enumerates the parallel lines within each station. Stations not
// listed here run a single untagged line.
var subLines = map[int][]string{
	StationCrusher:   {"3E", "Rapid", "Betty"},
	StationWashing:   {"Washing 1", "Washing 2", "Washing 3"},
	StationExtrusion: {"Extrusion 1", "Extrusion 2", "Extrusion 3", "Mixture"},
}

// SubLines returns the sub-line catalog for a station (nil if it has none).
func SubLines(stationID int) []string {
	return subLines[stationID]
}

// RequiresSubLine reports whether output cannot be recorded for the station
// until an operator has picked a sub-line.
func RequiresSubLine(stationID int) bool {
	return len(subLines[stationID]) > 0
}

// ValidSubLine reports whether subLine belongs to the station's catalog.
// Empty subLine is valid only for stations without sub-lines.
func ValidSubLine(stationID int, subLine string) bool {
	lines, ok := subLines[stationID]
	if !ok {
		return subLine == ""
	}
	for _, l := range lines {
		if l == subLine {
			return true
		}
	}
	return false
}

// stationCodes are the prefixes encoded into generated bag QR codes so
// provenance can be read off the printed label.
var stationCodes = map[int]string{
	StationLabelRemoval:   "LBL",
	StationCrusher:        "CRS",
	StationWashing:        "WSH",
	StationExtrusion:      "EXT",
	StationFinalPackaging: "FPK",
}

// StationCode returns the short code used in QR generation.
func StationCode(stationID int) string {
	return stationCodes[stationID]
}

var stationNames = map[int]string{
	StationLabelRemoval:   "Label Removal",
	StationCrusher:        "Crusher",
	StationWashing:        "Washing",
	StationExtrusion:      "Extrusion",
	StationFinalPackaging: "Final Packaging",
}

// StationName returns the canonical display name ("" for unknown IDs).
func StationName(stationID int) string {
	return stationNames[stationID]
}

// KnownStation reports whether stationID is one of the five stations.
func KnownStation(stationID int) bool {
	_, ok := stationNames[stationID]
	return ok
}

// ProducesTrackedOutput reports whether the station creates QR-coded output
// batches. Label Removal is a by-product/time-tracking placeholder and Final
// Packaging is terminal.
func ProducesTrackedOutput(stationID int) bool {
	switch stationID {
	case StationCrusher, StationWashing, StationExtrusion:
		return true
	}
	return false
}
