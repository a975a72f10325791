package models

import "testing"

func TestUpstreamOf(t *testing.T) {
	cases := []struct {
		station int
		want    int
	}{
		{StationLabelRemoval, 0},
		{StationCrusher, 0},
		{StationWashing, StationCrusher},
		{StationExtrusion, StationWashing},
		{StationFinalPackaging, StationExtrusion},
	}
	for _, c := range cases {
		if got := UpstreamOf(c.station); got != c.want {
			t.Errorf("UpstreamOf(%d) = %d, want %d", c.station, got, c.want)
		}
	}
}

func TestEnforcesUpstream(t *testing.T) {
	if EnforcesUpstream(StationCrusher) {
		t.Fatal("crusher takes untracked input, must not enforce an upstream")
	}
	if !EnforcesUpstream(StationFinalPackaging) {
		t.Fatal("final packaging must enforce extrusion as its upstream")
	}
}

func TestValidSubLine(t *testing.T) {
	cases := []struct {
		station int
		subLine string
		want    bool
	}{
		{StationCrusher, "3E", true},
		{StationCrusher, "Rapid", true},
		{StationCrusher, "Washing 1", false},
		{StationWashing, "Washing 3", true},
		{StationWashing, "Washing 4", false},
		{StationExtrusion, "Mixture", true},
		{StationFinalPackaging, "", true},
		{StationFinalPackaging, "FP1", false},
		{StationLabelRemoval, "", true},
	}
	for _, c := range cases {
		if got := ValidSubLine(c.station, c.subLine); got != c.want {
			t.Errorf("ValidSubLine(%d, %q) = %v, want %v", c.station, c.subLine, got, c.want)
		}
	}
}

func TestRequiresSubLine(t *testing.T) {
	for _, station := range []int{StationCrusher, StationWashing, StationExtrusion} {
		if !RequiresSubLine(station) {
			t.Errorf("station %d has sub-lines and must require one", station)
		}
	}
	for _, station := range []int{StationLabelRemoval, StationFinalPackaging} {
		if RequiresSubLine(station) {
			t.Errorf("station %d has no sub-lines", station)
		}
	}
}

func TestProducesTrackedOutput(t *testing.T) {
	if ProducesTrackedOutput(StationLabelRemoval) {
		t.Fatal("label removal records no tracked output")
	}
	if ProducesTrackedOutput(StationFinalPackaging) {
		t.Fatal("final packaging is terminal")
	}
	if !ProducesTrackedOutput(StationCrusher) {
		t.Fatal("crusher records tracked output")
	}
}

func TestFormatBagQr(t *testing.T) {
	cases := []struct {
		station int
		subLine string
		shiftID int
		seq     int
		want    string
	}{
		{StationCrusher, "3E", 12, 1, "CRS-3E-12-001"},
		{StationCrusher, "Rapid", 12, 42, "CRS-RAPID-12-042"},
		{StationWashing, "Washing 1", 7, 3, "WSH-W1-7-003"},
		{StationExtrusion, "Extrusion 2", 7, 110, "EXT-E2-7-110"},
		{StationExtrusion, "Mixture", 9, 5, "EXT-MIX-9-005"},
		{StationFinalPackaging, "", 9, 1, "FPK-9-001"},
	}
	for _, c := range cases {
		if got := FormatBagQr(c.station, c.subLine, c.shiftID, c.seq); got != c.want {
			t.Errorf("FormatBagQr(%d, %q, %d, %d) = %q, want %q",
				c.station, c.subLine, c.shiftID, c.seq, got, c.want)
		}
	}
}

func TestStationDisplayName(t *testing.T) {
	cases := []struct {
		station int
		subLine string
		want    string
	}{
		{StationCrusher, "3E", "Crusher-3E"},
		{StationWashing, "Washing 1", "Washing-W1"},
		{StationExtrusion, "Extrusion 2", "Extrusion-E2"},
		{StationFinalPackaging, "", "Final Packaging"},
	}
	for _, c := range cases {
		got := StationDisplayName(c.station, StationName(c.station), c.subLine)
		if got != c.want {
			t.Errorf("StationDisplayName(%d, %q) = %q, want %q", c.station, c.subLine, got, c.want)
		}
	}
}
