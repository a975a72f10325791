package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"recycle-backend/internal/metrics"
	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
	"recycle-backend/internal/repositories"
)

// BatchStore is the slice of the ledger repository the batch service
// needs. *repositories.BatchRepository satisfies it; tests use an
// in-memory fake.
type BatchStore interface {
	NextSequence(ctx context.Context, stationID, shiftID int, subLine string) (int, error)
	Create(ctx context.Context, b *models.Batch) error
	GetByQr(ctx context.Context, outputBagQr string) (*models.Batch, error)
	GetByID(ctx context.Context, id int) (*models.Batch, error)
	UpdateStatusIfPending(ctx context.Context, outputBagQr, newStatus, usedLine string) (*models.Batch, error)
	UpdateWeight(ctx context.Context, id int, weight float64) (*models.Batch, error)
	Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error)
	ListByShift(ctx context.Context, shiftID int) ([]*models.Batch, error)
	ShiftTotals(ctx context.Context, shiftID int) ([]models.StationTotals, error)
}

// ShiftGetter lets the batch service reject writes against closed
// shifts without depending on the whole shift service.
type ShiftGetter interface {
	Get(ctx context.Context, id int) (*models.Shift, error)
}

// ChangeNotifier receives recomputed shift totals after every ledger
// mutation. The live feed hub implements it.
type ChangeNotifier interface {
	Publish(shiftID int, totals []models.StationTotals)
}

type BatchService struct {
	Batches  BatchStore
	Shifts   ShiftGetter
	Notifier ChangeNotifier
}

func NewBatchService(batches BatchStore, shifts ShiftGetter) *BatchService {
	return &BatchService{Batches: batches, Shifts: shifts}
}

// SetNotifier wires the live aggregate feed.
func (s *BatchService) SetNotifier(n ChangeNotifier) {
	s.Notifier = n
}

// notifyShift recomputes and publishes shift totals after a mutation.
// Best effort: a failed recompute never fails the mutation.
func (s *BatchService) notifyShift(ctx context.Context, shiftID int) {
	if s.Notifier == nil || shiftID == 0 {
		return
	}
	totals, err := s.Batches.ShiftTotals(ctx, shiftID)
	if err != nil {
		log.Printf("[Ledger] totals recompute for live feed failed: %v", err)
		return
	}
	s.Notifier.Publish(shiftID, totals)
}

// NextQr generates the next printable bag QR for a station/sub-line in
// a shift, without reserving it; the unique index on output_bag_qr
// resolves preview races at save time.
func (s *BatchService) NextQr(ctx context.Context, stationID, shiftID int, subLine string) (*models.NextQr, error) {
	if !models.KnownStation(stationID) {
		return nil, production.Validation("stationId", "unknown station")
	}
	if subLine != "" && !models.ValidSubLine(stationID, subLine) {
		return nil, production.Validation("subLine", "not a sub-line of this station")
	}

	seq, err := s.Batches.NextSequence(ctx, stationID, shiftID, subLine)
	if err != nil {
		return nil, production.Remote("next-qr", err)
	}
	return &models.NextQr{
		QrCode: models.FormatBagQr(stationID, subLine, shiftID, seq),
		Details: models.NextQrDetail{
			StationName: models.StationDisplayName(stationID, models.StationName(stationID), subLine),
		},
	}, nil
}

// CreateBatch appends a row to the ledger. Two flavors share this
// entry point, mirroring the client's two save paths:
//
//   - output save (no inputBagQr): a station records a new weighed bag;
//     requires a sub-line on stations that have them, defaults to
//     pending (operator may choose Completed for a final container).
//   - consume-and-create (inputBagQr set): a station claims an
//     upstream bag by writing a new row that references it; defaults
//     to Processing.
//
// All validation happens before any storage call.
func (s *BatchService) CreateBatch(ctx context.Context, req *models.CreateBatchRequest, materialTypeID int) (*models.Batch, error) {
	if !models.KnownStation(req.StationID) {
		return nil, production.Validation("stationId", "unknown station")
	}
	if req.Weight <= 0 {
		return nil, production.Validation("weight", "must be greater than zero")
	}
	if req.OutputBagQr == "" {
		return nil, production.Validation("outputBagQr", "required")
	}

	status := req.Status
	if req.InputBagQr == "" {
		// Pure output save.
		if !models.ProducesTrackedOutput(req.StationID) {
			return nil, production.Validation("stationId", "station does not record tracked output")
		}
		if models.RequiresSubLine(req.StationID) && req.SubLine == "" {
			return nil, production.Validation("subLine", "required for this station")
		}
		if req.SubLine != "" && !models.ValidSubLine(req.StationID, req.SubLine) {
			return nil, production.Validation("subLine", "not a sub-line of this station")
		}
		switch status {
		case "":
			status = models.StatusPending
		case models.StatusPending, models.StatusCompleted:
		default:
			return nil, production.Validation("status", "must be pending or Completed")
		}
	} else {
		if status == "" {
			status = models.StatusProcessing
		}
	}

	shift, err := s.Shifts.Get(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("shift", "")
		}
		return nil, production.Remote("load shift", err)
	}
	if !shift.Open() {
		return nil, production.Validation("shiftId", "shift is closed")
	}

	b := &models.Batch{
		ShiftID:        req.ShiftID,
		StationID:      req.StationID,
		SubLine:        req.SubLine,
		InputBagQr:     req.InputBagQr,
		OutputBagQr:    req.OutputBagQr,
		Weight:         req.Weight,
		Status:         status,
		MaterialTypeID: materialTypeID,
	}
	if err := s.Batches.Create(ctx, b); err != nil {
		return nil, production.Remote("create batch", err)
	}

	metrics.BatchesCreatedTotal.WithLabelValues(models.StationName(b.StationID), b.SubLine).Inc()
	s.notifyShift(ctx, b.ShiftID)
	return b, nil
}

// GetBatch looks a batch up by its QR.
func (s *BatchService) GetBatch(ctx context.Context, outputBagQr string) (*models.Batch, error) {
	b, err := s.Batches.GetByQr(ctx, outputBagQr)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("batch", outputBagQr)
		}
		return nil, production.Remote("load batch", err)
	}
	return b, nil
}

// UpdateStatus is the consume-in-place transition: pending -> Completed
// with the consuming line recorded. Exactly one downstream claim can
// ever succeed per batch; a lost race surfaces as InvalidTransitionError.
func (s *BatchService) UpdateStatus(ctx context.Context, req *models.UpdateStatusRequest) (*models.Batch, error) {
	if req.OutputBagQr == "" {
		return nil, production.Validation("outputBagQr", "required")
	}
	if req.Status != models.StatusCompleted {
		return nil, production.Validation("status", "only the Completed transition is allowed")
	}

	b, err := s.Batches.UpdateStatusIfPending(ctx, req.OutputBagQr, models.StatusCompleted, req.ConsumingLine())
	if err == nil {
		metrics.BatchesConsumedTotal.WithLabelValues(models.StationName(b.StationID), b.UsedLine).Inc()
		s.notifyShift(ctx, b.ShiftID)
		return b, nil
	}
	if !errors.Is(err, repositories.ErrNotPending) {
		return nil, production.Remote("update status", err)
	}

	// The conditional update matched nothing: distinguish "no such
	// batch" from "already consumed" for the operator prompt.
	if _, getErr := s.Batches.GetByQr(ctx, req.OutputBagQr); getErr != nil {
		if errors.Is(getErr, repositories.ErrNoRows) {
			return nil, production.NotFound("batch", req.OutputBagQr)
		}
		return nil, production.Remote("load batch", getErr)
	}
	metrics.ConsumptionConflictsTotal.Inc()
	return nil, production.InvalidTransition(req.OutputBagQr, "already consumed")
}

// CorrectWeight is the supervisory in-place weight fix. Status and
// provenance are untouched; the handler enforces the role.
func (s *BatchService) CorrectWeight(ctx context.Context, logID int, weight float64) (*models.Batch, error) {
	if weight <= 0 {
		return nil, production.Validation("weight", "must be greater than zero")
	}
	b, err := s.Batches.UpdateWeight(ctx, logID, weight)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("batch", "")
		}
		return nil, production.Remote("correct weight", err)
	}
	s.notifyShift(ctx, b.ShiftID)
	return b, nil
}

// Search finds candidate input batches for a consuming station.
//
// Guards, in order:
//   - a station with an enforced upstream only ever sees that
//     upstream's batches, whatever target the caller asked for;
//   - Washing and Extrusion get no results for an empty query (a
//     deliberate block on "browse all" linking);
//   - everyone else needs at least 2 characters.
func (s *BatchService) Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error) {
	query = strings.TrimSpace(query)

	if upstream := models.UpstreamOf(currentStationID); upstream != 0 {
		targetStationID = upstream
	}
	if targetStationID == 0 {
		return []*models.Batch{}, nil
	}

	switch currentStationID {
	case models.StationWashing, models.StationExtrusion:
		if query == "" {
			return []*models.Batch{}, nil
		}
	default:
		if len(query) < 2 {
			return []*models.Batch{}, nil
		}
	}

	if status == "" {
		status = models.StatusPending
	}

	batches, err := s.Batches.Search(ctx, query, targetStationID, currentStationID, status)
	if err != nil {
		return nil, production.Remote("search batches", err)
	}
	if batches == nil {
		batches = []*models.Batch{}
	}
	return batches, nil
}

// scanPayload is what line-side QR labels encode. Older labels are a
// bare QR string; both forms are accepted.
type scanPayload struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// ResolveScan validates a scanned payload against the expected source
// station without consuming anything. A rejection carries the reason
// so the UI can prompt a re-scan.
func (s *BatchService) ResolveScan(ctx context.Context, rawPayload string, expectedSourceStationID int) (*models.Batch, error) {
	qr := strings.TrimSpace(rawPayload)
	var p scanPayload
	if err := json.Unmarshal([]byte(rawPayload), &p); err == nil && p.ID != "" {
		qr = p.ID
	}
	if qr == "" {
		return nil, production.Validation("payload", "empty scan")
	}

	b, err := s.Batches.GetByQr(ctx, qr)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("batch", qr)
		}
		return nil, production.Remote("resolve scan", err)
	}
	if expectedSourceStationID != 0 && b.StationID != expectedSourceStationID {
		return nil, production.InvalidTransition(qr,
			"not a "+models.StationName(expectedSourceStationID)+" batch")
	}
	if b.Status != models.StatusPending {
		return nil, production.InvalidTransition(qr, "already consumed")
	}
	return b, nil
}

// ListByShift returns the shift's ledger slice.
func (s *BatchService) ListByShift(ctx context.Context, shiftID int) ([]*models.Batch, error) {
	batches, err := s.Batches.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, production.Remote("list shift logs", err)
	}
	if batches == nil {
		batches = []*models.Batch{}
	}
	return batches, nil
}

// ShiftTotals aggregates the shift's output per station.
func (s *BatchService) ShiftTotals(ctx context.Context, shiftID int) ([]models.StationTotals, error) {
	totals, err := s.Batches.ShiftTotals(ctx, shiftID)
	if err != nil {
		return nil, production.Remote("shift totals", err)
	}
	return totals, nil
}
