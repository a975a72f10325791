package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
	"recycle-backend/internal/repositories"
)

// fakeBatchStore mirrors the repository's conditional-update semantics
// in memory.
type fakeBatchStore struct {
	batches []*models.Batch
	nextID  int
}

func (f *fakeBatchStore) byQr(qr string) *models.Batch {
	for _, b := range f.batches {
		if b.OutputBagQr == qr {
			return b
		}
	}
	return nil
}

func (f *fakeBatchStore) NextSequence(ctx context.Context, stationID, shiftID int, subLine string) (int, error) {
	n := 1
	for _, b := range f.batches {
		if b.StationID == stationID && b.ShiftID == shiftID && b.SubLine == subLine {
			n++
		}
	}
	return n, nil
}

func (f *fakeBatchStore) Create(ctx context.Context, b *models.Batch) error {
	if f.byQr(b.OutputBagQr) != nil {
		return errors.New("duplicate output_bag_qr")
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now()
	f.batches = append(f.batches, b)
	return nil
}

func (f *fakeBatchStore) GetByQr(ctx context.Context, qr string) (*models.Batch, error) {
	if b := f.byQr(qr); b != nil {
		return b, nil
	}
	return nil, repositories.ErrNoRows
}

func (f *fakeBatchStore) GetByID(ctx context.Context, id int) (*models.Batch, error) {
	for _, b := range f.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, repositories.ErrNoRows
}

func (f *fakeBatchStore) UpdateStatusIfPending(ctx context.Context, qr, newStatus, usedLine string) (*models.Batch, error) {
	b := f.byQr(qr)
	if b == nil || b.Status != models.StatusPending {
		return nil, repositories.ErrNotPending
	}
	b.Status = newStatus
	b.UsedLine = usedLine
	return b, nil
}

func (f *fakeBatchStore) UpdateWeight(ctx context.Context, id int, weight float64) (*models.Batch, error) {
	for _, b := range f.batches {
		if b.ID == id {
			b.Weight = weight
			return b, nil
		}
	}
	return nil, repositories.ErrNoRows
}

func (f *fakeBatchStore) Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error) {
	var out []*models.Batch
	for _, b := range f.batches {
		if b.StationID != targetStationID || b.Status != status {
			continue
		}
		if !strings.Contains(strings.ToLower(b.OutputBagQr), strings.ToLower(query)) {
			continue
		}
		if currentStationID != 0 && b.UsedLine != "" {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBatchStore) ListByShift(ctx context.Context, shiftID int) ([]*models.Batch, error) {
	var out []*models.Batch
	for _, b := range f.batches {
		if b.ShiftID == shiftID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) ShiftTotals(ctx context.Context, shiftID int) ([]models.StationTotals, error) {
	sums := map[int]*models.StationTotals{}
	for _, b := range f.batches {
		if b.ShiftID != shiftID {
			continue
		}
		t, ok := sums[b.StationID]
		if !ok {
			t = &models.StationTotals{StationID: b.StationID}
			sums[b.StationID] = t
		}
		t.Bags++
		t.TotalWeight += b.Weight
	}
	var out []models.StationTotals
	for _, t := range sums {
		out = append(out, *t)
	}
	return out, nil
}

// fakeShiftGetter serves shifts from a map.
type fakeShiftGetter struct {
	shifts map[int]*models.Shift
}

func (f *fakeShiftGetter) Get(ctx context.Context, id int) (*models.Shift, error) {
	if s, ok := f.shifts[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrNoRows
}

func openShift(id int) *fakeShiftGetter {
	return &fakeShiftGetter{shifts: map[int]*models.Shift{
		id: {ID: id, LineID: 1, ShiftTypeID: 1, StartTime: time.Now()},
	}}
}

func newBatchService(store *fakeBatchStore, shifts ShiftGetter) *BatchService {
	return NewBatchService(store, shifts)
}

func pendingBatch(store *fakeBatchStore, qr string, stationID, shiftID int, subLine string, weight float64) *models.Batch {
	b := &models.Batch{
		ShiftID: shiftID, StationID: stationID, SubLine: subLine,
		OutputBagQr: qr, Weight: weight, Status: models.StatusPending,
	}
	store.Create(context.Background(), b)
	return b
}

func TestCreateBatchValidation(t *testing.T) {
	svc := newBatchService(&fakeBatchStore{}, openShift(12))

	cases := []struct {
		name string
		req  models.CreateBatchRequest
	}{
		{"zero weight", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationCrusher, SubLine: "3E", OutputBagQr: "CRS-3E-12-001"}},
		{"negative weight", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationCrusher, SubLine: "3E", OutputBagQr: "CRS-3E-12-001", Weight: -5}},
		{"unknown station", models.CreateBatchRequest{ShiftID: 12, StationID: 9, OutputBagQr: "X-1", Weight: 10}},
		{"missing sub-line", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationCrusher, OutputBagQr: "CRS-12-001", Weight: 10}},
		{"wrong sub-line", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationCrusher, SubLine: "Washing 1", OutputBagQr: "CRS-12-001", Weight: 10}},
		{"untracked station output", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationLabelRemoval, OutputBagQr: "LBL-12-001", Weight: 10}},
		{"bad status", models.CreateBatchRequest{ShiftID: 12, StationID: models.StationCrusher, SubLine: "3E", OutputBagQr: "CRS-3E-12-001", Weight: 10, Status: "Done"}},
	}
	for _, c := range cases {
		_, err := svc.CreateBatch(context.Background(), &c.req, 1)
		var ve *production.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected validation error, got %v", c.name, err)
		}
	}
}

func TestCreateBatchRejectsClosedShift(t *testing.T) {
	ended := time.Now()
	shifts := &fakeShiftGetter{shifts: map[int]*models.Shift{
		12: {ID: 12, EndTime: &ended},
	}}
	svc := newBatchService(&fakeBatchStore{}, shifts)

	_, err := svc.CreateBatch(context.Background(), &models.CreateBatchRequest{
		ShiftID: 12, StationID: models.StationCrusher, SubLine: "3E",
		OutputBagQr: "CRS-3E-12-001", Weight: 10,
	}, 1)
	var ve *production.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error for closed shift, got %v", err)
	}
}

func TestCreateBatchDefaultsStatus(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))

	out, err := svc.CreateBatch(context.Background(), &models.CreateBatchRequest{
		ShiftID: 12, StationID: models.StationCrusher, SubLine: "3E",
		OutputBagQr: "CRS-3E-12-001", Weight: 450,
	}, 2)
	if err != nil {
		t.Fatalf("output save: %v", err)
	}
	if out.Status != models.StatusPending {
		t.Fatalf("output save status = %q, want pending", out.Status)
	}
	if out.MaterialTypeID != 2 {
		t.Fatalf("material type not stamped from operator, got %d", out.MaterialTypeID)
	}

	linked, err := svc.CreateBatch(context.Background(), &models.CreateBatchRequest{
		ShiftID: 12, StationID: models.StationWashing, SubLine: "Washing 1",
		InputBagQr: "CRS-3E-12-001", OutputBagQr: "WSH-W1-12-001", Weight: 430,
	}, 2)
	if err != nil {
		t.Fatalf("consume-and-create save: %v", err)
	}
	if linked.Status != models.StatusProcessing {
		t.Fatalf("linked save status = %q, want Processing", linked.Status)
	}
}

func TestUpdateStatusAtMostOnce(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))
	pendingBatch(store, "CRS-3E-12-001", models.StationCrusher, 12, "3E", 450)

	first, err := svc.UpdateStatus(context.Background(), &models.UpdateStatusRequest{
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusCompleted, WashingLine: "Washing 1",
	})
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first.Status != models.StatusCompleted || first.UsedLine != "Washing 1" {
		t.Fatalf("first claim result: %+v", first)
	}

	_, err = svc.UpdateStatus(context.Background(), &models.UpdateStatusRequest{
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusCompleted, WashingLine: "Washing 2",
	})
	var it *production.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("second claim must conflict, got %v", err)
	}
	if store.byQr("CRS-3E-12-001").UsedLine != "Washing 1" {
		t.Fatal("losing claim overwrote the winner's line")
	}
}

func TestUpdateStatusUnknownQr(t *testing.T) {
	svc := newBatchService(&fakeBatchStore{}, openShift(12))
	_, err := svc.UpdateStatus(context.Background(), &models.UpdateStatusRequest{
		OutputBagQr: "CRS-3E-12-999", Status: models.StatusCompleted,
	})
	var nf *production.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStatusOnlyCompletedAllowed(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))
	pendingBatch(store, "CRS-3E-12-001", models.StationCrusher, 12, "3E", 450)

	_, err := svc.UpdateStatus(context.Background(), &models.UpdateStatusRequest{
		OutputBagQr: "CRS-3E-12-001", Status: models.StatusPending,
	})
	var ve *production.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("only the Completed transition is legal, got %v", err)
	}
}

func TestCorrectWeightPreservesStatus(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))
	b := pendingBatch(store, "CRS-3E-12-001", models.StationCrusher, 12, "3E", 450)
	store.UpdateStatusIfPending(context.Background(), b.OutputBagQr, models.StatusCompleted, "Washing 1")

	got, err := svc.CorrectWeight(context.Background(), b.ID, 460)
	if err != nil {
		t.Fatalf("correct weight: %v", err)
	}
	if got.Weight != 460 {
		t.Fatalf("weight = %v, want 460", got.Weight)
	}
	if got.Status != models.StatusCompleted || got.UsedLine != "Washing 1" {
		t.Fatalf("weight correction disturbed status/provenance: %+v", got)
	}

	if _, err := svc.CorrectWeight(context.Background(), b.ID, 0); err == nil {
		t.Fatal("zero weight must be rejected")
	}
}

func TestSearchGuards(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))
	pendingBatch(store, "CRS-3E-12-001", models.StationCrusher, 12, "3E", 450)
	pendingBatch(store, "EXT-E1-12-001", models.StationExtrusion, 12, "Extrusion 1", 900)

	// Washing: empty query blocked, any non-empty query allowed.
	got, err := svc.Search(context.Background(), "", 0, models.StationWashing, "")
	if err != nil || len(got) != 0 {
		t.Fatalf("washing empty query: got %d results, err %v", len(got), err)
	}
	got, err = svc.Search(context.Background(), "C", 0, models.StationWashing, "")
	if err != nil || len(got) != 1 {
		t.Fatalf("washing 1-char query: got %d results, err %v", len(got), err)
	}

	// Final packaging: under 2 characters blocked.
	got, err = svc.Search(context.Background(), "E", 0, models.StationFinalPackaging, "")
	if err != nil || len(got) != 0 {
		t.Fatalf("final packaging 1-char query: got %d results, err %v", len(got), err)
	}
	got, err = svc.Search(context.Background(), "EX", 0, models.StationFinalPackaging, "")
	if err != nil || len(got) != 1 {
		t.Fatalf("final packaging 2-char query: got %d results, err %v", len(got), err)
	}

	// The enforced upstream overrides whatever target the caller asks
	// for: washing can never pull extrusion bags.
	got, err = svc.Search(context.Background(), "EXT", models.StationExtrusion, models.StationWashing, "")
	if err != nil || len(got) != 0 {
		t.Fatalf("washing must only see crusher bags: got %d results, err %v", len(got), err)
	}
}

func TestResolveScan(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))
	pendingBatch(store, "CRS-3E-12-001", models.StationCrusher, 12, "3E", 450)

	// JSON payload form.
	b, err := svc.ResolveScan(context.Background(), `{"id":"CRS-3E-12-001","weight":450}`, models.StationCrusher)
	if err != nil || b.OutputBagQr != "CRS-3E-12-001" {
		t.Fatalf("JSON payload: %v, %+v", err, b)
	}

	// Raw string fallback.
	if _, err := svc.ResolveScan(context.Background(), "CRS-3E-12-001", models.StationCrusher); err != nil {
		t.Fatalf("raw payload: %v", err)
	}

	// Wrong source station.
	_, err = svc.ResolveScan(context.Background(), "CRS-3E-12-001", models.StationExtrusion)
	var it *production.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("wrong station: expected invalid transition, got %v", err)
	}

	// Consumed bag.
	store.UpdateStatusIfPending(context.Background(), "CRS-3E-12-001", models.StatusCompleted, "Washing 1")
	_, err = svc.ResolveScan(context.Background(), "CRS-3E-12-001", models.StationCrusher)
	if !errors.As(err, &it) {
		t.Fatalf("consumed bag: expected invalid transition, got %v", err)
	}

	// Unknown QR, no mutation anywhere.
	_, err = svc.ResolveScan(context.Background(), "WSH-W9-99-999", 0)
	var nf *production.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("unknown QR: expected not found, got %v", err)
	}
}

func TestNextQrSequencesPerSubLine(t *testing.T) {
	store := &fakeBatchStore{}
	svc := newBatchService(store, openShift(12))

	next, err := svc.NextQr(context.Background(), models.StationCrusher, 12, "3E")
	if err != nil {
		t.Fatalf("next qr: %v", err)
	}
	if next.QrCode != "CRS-3E-12-001" {
		t.Fatalf("first code = %q, want CRS-3E-12-001", next.QrCode)
	}

	pendingBatch(store, next.QrCode, models.StationCrusher, 12, "3E", 450)
	pendingBatch(store, "CRS-RAPID-12-001", models.StationCrusher, 12, "Rapid", 450)

	next, err = svc.NextQr(context.Background(), models.StationCrusher, 12, "3E")
	if err != nil {
		t.Fatalf("next qr after save: %v", err)
	}
	// The Rapid save must not advance the 3E sequence.
	if next.QrCode != "CRS-3E-12-002" {
		t.Fatalf("second code = %q, want CRS-3E-12-002", next.QrCode)
	}
}
