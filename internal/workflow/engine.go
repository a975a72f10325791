package workflow

import (
	"context"

	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
)

// Ledger is the slice of the batch service the engine drives.
// *services.BatchService satisfies it.
type Ledger interface {
	NextQr(ctx context.Context, stationID, shiftID int, subLine string) (*models.NextQr, error)
	CreateBatch(ctx context.Context, req *models.CreateBatchRequest, materialTypeID int) (*models.Batch, error)
	UpdateStatus(ctx context.Context, req *models.UpdateStatusRequest) (*models.Batch, error)
	ResolveScan(ctx context.Context, rawPayload string, expectedSourceStationID int) (*models.Batch, error)
	Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error)
}

// Engine advances a single operator session. All validation happens
// before the first ledger call, so a rejected step leaves both the
// session and the ledger untouched.
type Engine struct {
	ledger Ledger
	ctx    Context
}

func NewEngine(ledger Ledger, shiftID, operatorID, materialTypeID int) *Engine {
	return &Engine{
		ledger: ledger,
		ctx: Context{
			ShiftID:        shiftID,
			OperatorID:     operatorID,
			MaterialTypeID: materialTypeID,
		},
	}
}

// Session exposes a read-only copy of the session state.
func (e *Engine) Session() Context {
	return e.ctx
}

// SelectStation sets the working station and drops anything staged.
func (e *Engine) SelectStation(stationID int) error {
	if !models.KnownStation(stationID) {
		return production.Validation("stationId", "unknown station")
	}
	e.ctx.StationID = stationID
	e.ctx.SubLine = ""
	e.ctx.Reset()
	return nil
}

// SelectSubLine sets the working sub-line. Any staged input or weight
// is dropped: a bag linked while "Washing 1" was selected must not be
// committed under "Washing 2".
func (e *Engine) SelectSubLine(subLine string) error {
	if e.ctx.StationID == 0 {
		return production.Validation("stationId", "select a station first")
	}
	if !models.ValidSubLine(e.ctx.StationID, subLine) {
		return production.Validation("subLine", "not a sub-line of this station")
	}
	e.ctx.SubLine = subLine
	e.ctx.Reset()
	return nil
}

// SearchInputs returns candidate upstream batches for the current
// station. The matcher's guards (enforced upstream, minimum query
// length) apply unchanged.
func (e *Engine) SearchInputs(ctx context.Context, query string) ([]*models.Batch, error) {
	if e.ctx.StationID == 0 {
		return nil, production.Validation("stationId", "select a station first")
	}
	return e.ledger.Search(ctx, query, 0, e.ctx.StationID, models.StatusPending)
}

// ChooseInput resolves a scanned or searched QR and stages it. Only
// stations with an enforced upstream take tracked input; the resolved
// batch must come from that upstream and still be pending. Nothing is
// consumed here.
func (e *Engine) ChooseInput(ctx context.Context, rawPayload string) (*models.Batch, error) {
	upstream := models.UpstreamOf(e.ctx.StationID)
	if upstream == 0 {
		return nil, production.Validation("stationId", "station takes no tracked input")
	}
	if models.RequiresSubLine(e.ctx.StationID) && e.ctx.SubLine == "" {
		return nil, production.Validation("subLine", "select a sub-line first")
	}

	b, err := e.ledger.ResolveScan(ctx, rawPayload, upstream)
	if err != nil {
		return nil, err
	}
	e.ctx.Input = b
	e.ctx.Weight = 0
	e.ctx.State = StateInputSelected
	return b, nil
}

// EnterWeight stages the output weight. Stations with an enforced
// upstream must have an input linked first.
func (e *Engine) EnterWeight(weight float64) error {
	if weight <= 0 {
		return production.Validation("weight", "must be greater than zero")
	}
	if models.EnforcesUpstream(e.ctx.StationID) && e.ctx.Input == nil {
		return production.Validation("inputBagQr", "link an input batch first")
	}
	e.ctx.Weight = weight
	e.ctx.State = StateWeightEntered
	return nil
}

// usedLine is what gets stamped onto the consumed input: the consuming
// sub-line when there is one, otherwise the consuming station's name
// (Final Packaging has no sub-lines).
func (e *Engine) usedLine() string {
	if e.ctx.SubLine != "" {
		return e.ctx.SubLine
	}
	return models.StationName(e.ctx.StationID)
}

// Commit finalizes the session with the in-place consumption flow:
// the linked input moves pending -> Completed stamped with the
// consuming line, and stations that produce tracked output then append
// their output bag as a fresh pending row under a generated QR.
//
// Crusher has no tracked input, so its commit is the append alone.
// Final Packaging produces no tracked output, so its commit is the
// consumption alone.
func (e *Engine) Commit(ctx context.Context) (*models.Batch, error) {
	if e.ctx.StationID == 0 {
		return nil, production.Validation("stationId", "select a station first")
	}

	consumes := models.EnforcesUpstream(e.ctx.StationID)
	produces := models.ProducesTrackedOutput(e.ctx.StationID)

	// Every check runs before the first ledger call: a commit rejected
	// here must not have consumed the upstream bag.
	if consumes && e.ctx.Input == nil {
		return nil, production.Validation("inputBagQr", "link an input batch first")
	}
	if produces && e.ctx.Weight <= 0 {
		return nil, production.Validation("weight", "enter the output weight first")
	}

	if consumes {
		if _, err := e.ledger.UpdateStatus(ctx, &models.UpdateStatusRequest{
			OutputBagQr: e.ctx.Input.OutputBagQr,
			Status:      models.StatusCompleted,
			UsedLine:    e.usedLine(),
		}); err != nil {
			// Lost race or stale link: drop the staged input so the
			// operator rescans, keep the rest of the session.
			e.ctx.Input = nil
			e.ctx.State = StateIdle
			return nil, err
		}
		e.ctx.State = StateConsumed
	}

	if !produces {
		e.ctx.Reset()
		e.ctx.State = StateConsumed
		return nil, nil
	}

	next, err := e.ledger.NextQr(ctx, e.ctx.StationID, e.ctx.ShiftID, e.ctx.SubLine)
	if err != nil {
		return nil, err
	}
	out, err := e.ledger.CreateBatch(ctx, &models.CreateBatchRequest{
		ShiftID:     e.ctx.ShiftID,
		StationID:   e.ctx.StationID,
		SubLine:     e.ctx.SubLine,
		OutputBagQr: next.QrCode,
		Weight:      e.ctx.Weight,
	}, e.ctx.MaterialTypeID)
	if err != nil {
		return nil, err
	}

	e.ctx.Reset()
	e.ctx.State = StateBatchCreated
	return out, nil
}

// CommitLinked finalizes with the consume-and-create flow instead: a
// single new row referencing the input is appended with status
// Processing, and the input itself is left untouched. Used by lines
// that track work-in-progress on the new bag rather than closing out
// the source immediately.
func (e *Engine) CommitLinked(ctx context.Context) (*models.Batch, error) {
	if e.ctx.Input == nil {
		return nil, production.Validation("inputBagQr", "link an input batch first")
	}
	if e.ctx.Weight <= 0 {
		return nil, production.Validation("weight", "enter the output weight first")
	}

	next, err := e.ledger.NextQr(ctx, e.ctx.StationID, e.ctx.ShiftID, e.ctx.SubLine)
	if err != nil {
		return nil, err
	}
	out, err := e.ledger.CreateBatch(ctx, &models.CreateBatchRequest{
		ShiftID:     e.ctx.ShiftID,
		StationID:   e.ctx.StationID,
		SubLine:     e.ctx.SubLine,
		InputBagQr:  e.ctx.Input.OutputBagQr,
		OutputBagQr: next.QrCode,
		Weight:      e.ctx.Weight,
		Status:      models.StatusProcessing,
	}, e.ctx.MaterialTypeID)
	if err != nil {
		return nil, err
	}

	e.ctx.Reset()
	e.ctx.State = StateBatchCreated
	return out, nil
}
