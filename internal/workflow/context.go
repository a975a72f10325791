// Package workflow drives the operator's station screen: a small state
// machine that sequences station selection, sub-line selection, input
// batch linkage and weight entry before anything touches the ledger.
// It exists so the ordering rules live in one place instead of being
// re-implemented per screen.
package workflow

import "recycle-backend/internal/models"

// State of one operator session on a station screen.
type State int

const (
	// StateIdle: station picked (maybe), nothing staged.
	StateIdle State = iota
	// StateInputSelected: an upstream batch is linked.
	StateInputSelected
	// StateWeightEntered: a valid output weight is staged.
	StateWeightEntered
	// StateConsumed: the linked input was completed in place.
	StateConsumed
	// StateBatchCreated: an output row was appended to the ledger.
	StateBatchCreated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInputSelected:
		return "input-selected"
	case StateWeightEntered:
		return "weight-entered"
	case StateConsumed:
		return "consumed"
	case StateBatchCreated:
		return "batch-created"
	}
	return "unknown"
}

// Context is the mutable session the engine advances. One per operator
// screen; not safe for concurrent use.
type Context struct {
	State State

	ShiftID        int
	OperatorID     int
	MaterialTypeID int

	StationID int
	SubLine   string

	// Input is the upstream batch staged for consumption, nil until
	// ChooseInput succeeds.
	Input *models.Batch

	// Weight is the staged output weight in kg.
	Weight float64
}

// Reset clears everything staged below the station selection. Called on
// every station or sub-line change so a half-built entry can never
// carry stale linkage across selections.
func (c *Context) Reset() {
	c.State = StateIdle
	c.Input = nil
	c.Weight = 0
}
