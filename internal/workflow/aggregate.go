package workflow

import "recycle-backend/internal/models"

// Progress is a derived view over ledger rows. It is recomputed from
// scratch on every change, never incremented, so replays and retries
// cannot drift it.
type Progress struct {
	Bags        int     `json:"bags"`
	TotalWeight float64 `json:"total_weight"`
}

// ProgressFilter selects which ledger rows count toward a progress
// figure. Zero-valued filter fields are wildcards; a set field matches
// by strict equality, so a row missing a material or sub-line tag never
// counts toward a tagged view.
type ProgressFilter struct {
	StationID      int
	ShiftID        int
	MaterialTypeID int
	SubLine        string
}

// Match reports whether a ledger row counts under the filter.
func (f ProgressFilter) Match(b *models.Batch) bool {
	if f.StationID != 0 && b.StationID != f.StationID {
		return false
	}
	if f.ShiftID != 0 && b.ShiftID != f.ShiftID {
		return false
	}
	if f.MaterialTypeID != 0 && b.MaterialTypeID != f.MaterialTypeID {
		return false
	}
	if f.SubLine != "" && b.SubLine != f.SubLine {
		return false
	}
	return true
}

// Aggregate folds the rows matching the filter into a Progress.
func Aggregate(batches []*models.Batch, f ProgressFilter) Progress {
	var p Progress
	for _, b := range batches {
		if !f.Match(b) {
			continue
		}
		p.Bags++
		p.TotalWeight += b.Weight
	}
	return p
}

// ExtrusionProgress is the filter behind the extrusion screen's
// running total: this shift, the operator's material, the selected
// extrusion line.
func ExtrusionProgress(shiftID, materialTypeID int, subLine string) ProgressFilter {
	return ProgressFilter{
		StationID:      models.StationExtrusion,
		ShiftID:        shiftID,
		MaterialTypeID: materialTypeID,
		SubLine:        subLine,
	}
}
