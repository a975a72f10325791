package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
)

// fakeLedger mimics the batch service's contract in memory.
type fakeLedger struct {
	batches map[string]*models.Batch
	seq     map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		batches: make(map[string]*models.Batch),
		seq:     make(map[string]int),
	}
}

func (f *fakeLedger) add(b *models.Batch) *models.Batch {
	f.batches[b.OutputBagQr] = b
	return b
}

func (f *fakeLedger) NextQr(ctx context.Context, stationID, shiftID int, subLine string) (*models.NextQr, error) {
	key := models.StationCode(stationID) + subLine
	f.seq[key]++
	return &models.NextQr{
		QrCode: models.FormatBagQr(stationID, subLine, shiftID, f.seq[key]),
	}, nil
}

func (f *fakeLedger) CreateBatch(ctx context.Context, req *models.CreateBatchRequest, materialTypeID int) (*models.Batch, error) {
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	b := &models.Batch{
		ID:             len(f.batches) + 1,
		ShiftID:        req.ShiftID,
		StationID:      req.StationID,
		SubLine:        req.SubLine,
		InputBagQr:     req.InputBagQr,
		OutputBagQr:    req.OutputBagQr,
		Weight:         req.Weight,
		Status:         status,
		MaterialTypeID: materialTypeID,
	}
	return f.add(b), nil
}

func (f *fakeLedger) UpdateStatus(ctx context.Context, req *models.UpdateStatusRequest) (*models.Batch, error) {
	b, ok := f.batches[req.OutputBagQr]
	if !ok {
		return nil, production.NotFound("batch", req.OutputBagQr)
	}
	if b.Status != models.StatusPending {
		return nil, production.InvalidTransition(req.OutputBagQr, "already consumed")
	}
	b.Status = req.Status
	b.UsedLine = req.ConsumingLine()
	return b, nil
}

func (f *fakeLedger) ResolveScan(ctx context.Context, rawPayload string, expectedSourceStationID int) (*models.Batch, error) {
	qr := rawPayload
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(rawPayload), &p); err == nil && p.ID != "" {
		qr = p.ID
	}
	b, ok := f.batches[qr]
	if !ok {
		return nil, production.NotFound("batch", qr)
	}
	if expectedSourceStationID != 0 && b.StationID != expectedSourceStationID {
		return nil, production.InvalidTransition(qr, "wrong source station")
	}
	if b.Status != models.StatusPending {
		return nil, production.InvalidTransition(qr, "already consumed")
	}
	return b, nil
}

func (f *fakeLedger) Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error) {
	target := targetStationID
	if up := models.UpstreamOf(currentStationID); up != 0 {
		target = up
	}
	var out []*models.Batch
	for _, b := range f.batches {
		if b.StationID == target && b.Status == status && strings.Contains(b.OutputBagQr, query) {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestCrusherCommitCreatesOutput(t *testing.T) {
	ledger := newFakeLedger()
	eng := NewEngine(ledger, 12, 1, 1)

	if err := eng.SelectStation(models.StationCrusher); err != nil {
		t.Fatalf("select station: %v", err)
	}
	if err := eng.SelectSubLine("3E"); err != nil {
		t.Fatalf("select sub-line: %v", err)
	}
	if err := eng.EnterWeight(450); err != nil {
		t.Fatalf("enter weight: %v", err)
	}

	out, err := eng.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if out.OutputBagQr != "CRS-3E-12-001" {
		t.Fatalf("output QR = %q, want CRS-3E-12-001", out.OutputBagQr)
	}
	if out.Status != models.StatusPending {
		t.Fatalf("new output must start pending, got %q", out.Status)
	}
	if eng.Session().State != StateBatchCreated {
		t.Fatalf("state = %v, want batch-created", eng.Session().State)
	}
}

func TestWashingRequiresLinkedInputBeforeWeight(t *testing.T) {
	eng := NewEngine(newFakeLedger(), 12, 1, 1)
	if err := eng.SelectStation(models.StationWashing); err != nil {
		t.Fatalf("select station: %v", err)
	}
	if err := eng.SelectSubLine("Washing 1"); err != nil {
		t.Fatalf("select sub-line: %v", err)
	}

	err := eng.EnterWeight(300)
	var ve *production.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error before input linked, got %v", err)
	}
}

func TestWashingCommitConsumesAndCreates(t *testing.T) {
	ledger := newFakeLedger()
	input := ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12, SubLine: "3E",
		OutputBagQr: "CRS-3E-12-001", Weight: 450, Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationWashing)
	eng.SelectSubLine("Washing 1")

	if _, err := eng.ChooseInput(context.Background(), "CRS-3E-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}
	if err := eng.EnterWeight(430); err != nil {
		t.Fatalf("enter weight: %v", err)
	}

	out, err := eng.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if input.Status != models.StatusCompleted {
		t.Fatalf("input status = %q, want Completed", input.Status)
	}
	if input.UsedLine != "Washing 1" {
		t.Fatalf("input used line = %q, want Washing 1", input.UsedLine)
	}
	if out.StationID != models.StationWashing || out.Status != models.StatusPending {
		t.Fatalf("unexpected output row: %+v", out)
	}
}

func TestCommitWithoutWeightLeavesInputPending(t *testing.T) {
	ledger := newFakeLedger()
	input := ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12, SubLine: "3E",
		OutputBagQr: "CRS-3E-12-001", Weight: 450, Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationWashing)
	eng.SelectSubLine("Washing 1")
	if _, err := eng.ChooseInput(context.Background(), "CRS-3E-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}

	// Commit with no weight entered: rejected locally, the linked bag
	// must not have been consumed.
	_, err := eng.Commit(context.Background())
	var ve *production.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for missing weight, got %v", err)
	}
	if input.Status != models.StatusPending {
		t.Fatalf("input status = %q after rejected commit, want pending", input.Status)
	}
	if input.UsedLine != "" {
		t.Fatalf("input used line = %q after rejected commit, want empty", input.UsedLine)
	}
	if s := eng.Session(); s.Input == nil {
		t.Fatalf("staged input must survive a rejected commit so the operator can enter the weight and retry")
	}
}

func TestFinalPackagingCommitConsumesOnly(t *testing.T) {
	ledger := newFakeLedger()
	input := ledger.add(&models.Batch{
		StationID: models.StationExtrusion, ShiftID: 12, SubLine: "Extrusion 1",
		OutputBagQr: "EXT-E1-12-001", Weight: 900, Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationFinalPackaging)
	if _, err := eng.ChooseInput(context.Background(), "EXT-E1-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}

	out, err := eng.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if out != nil {
		t.Fatalf("final packaging must not append a row, got %+v", out)
	}
	if input.Status != models.StatusCompleted {
		t.Fatalf("input status = %q, want Completed", input.Status)
	}
	if input.UsedLine != "Final Packaging" {
		t.Fatalf("used line = %q, want Final Packaging", input.UsedLine)
	}
	if created := len(ledger.batches); created != 1 {
		t.Fatalf("ledger grew to %d rows, want 1", created)
	}
}

func TestSubLineChangeDropsStagedInput(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12,
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationWashing)
	eng.SelectSubLine("Washing 1")
	if _, err := eng.ChooseInput(context.Background(), "CRS-3E-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}

	if err := eng.SelectSubLine("Washing 2"); err != nil {
		t.Fatalf("re-select sub-line: %v", err)
	}
	if s := eng.Session(); s.Input != nil || s.State != StateIdle {
		t.Fatalf("staged input survived a sub-line change: %+v", s)
	}
}

func TestChooseInputRejectsWrongStation(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12,
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusPending,
	})

	// Final packaging only takes extrusion bags.
	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationFinalPackaging)

	_, err := eng.ChooseInput(context.Background(), "CRS-3E-12-001")
	var it *production.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected invalid transition for wrong source station, got %v", err)
	}
}

func TestChooseInputParsesScanPayload(t *testing.T) {
	ledger := newFakeLedger()
	ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12,
		OutputBagQr: "CRS-3E-12-001", Weight: 450, Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationWashing)
	eng.SelectSubLine("Washing 2")

	b, err := eng.ChooseInput(context.Background(), `{"id":"CRS-3E-12-001","weight":450}`)
	if err != nil {
		t.Fatalf("choose input from JSON payload: %v", err)
	}
	if b.OutputBagQr != "CRS-3E-12-001" {
		t.Fatalf("resolved %q, want CRS-3E-12-001", b.OutputBagQr)
	}
}

func TestLostRaceDropsStagedInput(t *testing.T) {
	ledger := newFakeLedger()
	input := ledger.add(&models.Batch{
		StationID: models.StationCrusher, ShiftID: 12,
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationWashing)
	eng.SelectSubLine("Washing 1")
	if _, err := eng.ChooseInput(context.Background(), "CRS-3E-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}
	if err := eng.EnterWeight(400); err != nil {
		t.Fatalf("enter weight: %v", err)
	}

	// Another line claims the bag between linking and commit.
	input.Status = models.StatusCompleted
	input.UsedLine = "Washing 3"

	_, err := eng.Commit(context.Background())
	var it *production.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("expected invalid transition on lost race, got %v", err)
	}
	if s := eng.Session(); s.Input != nil {
		t.Fatalf("stale input must be dropped after a lost race")
	}
	if input.UsedLine != "Washing 3" {
		t.Fatalf("loser overwrote the winner's claim: %q", input.UsedLine)
	}
}

func TestCommitLinkedAppendsProcessingRow(t *testing.T) {
	ledger := newFakeLedger()
	input := ledger.add(&models.Batch{
		StationID: models.StationWashing, ShiftID: 12, SubLine: "Washing 1",
		OutputBagQr: "WSH-W1-12-001", Weight: 430, Status: models.StatusPending,
	})

	eng := NewEngine(ledger, 12, 1, 1)
	eng.SelectStation(models.StationExtrusion)
	eng.SelectSubLine("Extrusion 1")
	if _, err := eng.ChooseInput(context.Background(), "WSH-W1-12-001"); err != nil {
		t.Fatalf("choose input: %v", err)
	}
	if err := eng.EnterWeight(420); err != nil {
		t.Fatalf("enter weight: %v", err)
	}

	out, err := eng.CommitLinked(context.Background())
	if err != nil {
		t.Fatalf("commit linked: %v", err)
	}
	if out.Status != models.StatusProcessing {
		t.Fatalf("linked row status = %q, want Processing", out.Status)
	}
	if out.InputBagQr != "WSH-W1-12-001" {
		t.Fatalf("linked row input = %q, want WSH-W1-12-001", out.InputBagQr)
	}
	if input.Status != models.StatusPending {
		t.Fatalf("consume-and-create must leave the source untouched, got %q", input.Status)
	}
}
