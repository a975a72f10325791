package models

// ByProduct is a named waste/sellable weight recorded against a station
// at shift close. Not tracked per-batch.
type ByProduct struct {
	ID        int     `json:"id"`
	ShiftID   int     `json:"shift_id"`
	StationID int     `json:"station_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Weight    float64 `json:"weight"`
}

// ByProductInput is one entry of the shift-close waste form.
type ByProductInput struct {
	StationID int     `json:"stationId"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Weight    float64 `json:"weight"`
}

// CatalogByProduct is a fixed catalog entry: what each station may
// report at close, and where that material goes.
type CatalogByProduct struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// byProductCatalog is fixed per station; the close form is pre-filled
// from it with zero weights.
var byProductCatalog = map[int][]CatalogByProduct{
	StationLabelRemoval: {
		{Name: "PP Cords", Category: "Sellable"},
		{Name: "Dust", Category: "Landfill"},
		{Name: "Floor Sweep", Category: "Landfill"},
	},
	StationCrusher: {
		{Name: "Spillage", Category: "Reprocess"},
		{Name: "Off-spec Flakes", Category: "Reprocess"},
	},
	StationWashing: {
		{Name: "Wet Fines", Category: "Dewater & Landfill"},
	},
	StationExtrusion: {
		{Name: "Looms", Category: "HIGH VALUE - Regrind"},
		{Name: "Filtered Material", Category: "Reprocess"},
	},
	StationFinalPackaging: {
		{Name: "Damaged Bags", Category: "Repack"},
		{Name: "Spillage", Category: "Reprocess"},
	},
}

// ByProductCatalog returns the fixed catalog for a station.
func ByProductCatalog(stationID int) []CatalogByProduct {
	return byProductCatalog[stationID]
}
