package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"recycle-backend/internal/cache"
	"recycle-backend/internal/metrics"
	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
	"recycle-backend/internal/repositories"
	"recycle-backend/internal/timeutil"
)

// ShiftStore is the slice of the shift repository the service needs.
type ShiftStore interface {
	Create(ctx context.Context, s *models.Shift) error
	Get(ctx context.Context, id int) (*models.Shift, error)
	GetActive(ctx context.Context, shiftTypeID int) (*models.Shift, error)
	Close(ctx context.Context, id int, remark string, autoClosed bool, endTime time.Time) (*models.Shift, error)
	ListOpen(ctx context.Context) ([]*models.Shift, error)
	ListClosed(ctx context.Context, limit int) ([]*models.Shift, error)
	GetShiftType(ctx context.Context, id int) (*models.ShiftType, error)
	ListShiftTypes(ctx context.Context) ([]*models.ShiftType, error)
	ListLines(ctx context.Context) ([]*models.ProductionLine, error)
	ListMaterialTypes(ctx context.Context) ([]*models.MaterialType, error)
}

// ByProductStore persists the shift-close waste form.
type ByProductStore interface {
	Upsert(ctx context.Context, bp *models.ByProduct) error
	ListByShift(ctx context.Context, shiftID int) ([]models.ByProduct, error)
	DeleteByShift(ctx context.Context, shiftID int) error
}

type ShiftService struct {
	Shifts     ShiftStore
	ByProducts ByProductStore
	Batches    BatchStore

	// now is injected for expiry tests; defaults to IST wall clock.
	now func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewShiftService(shifts ShiftStore, byProducts ByProductStore, batches BatchStore) *ShiftService {
	return &ShiftService{
		Shifts:     shifts,
		ByProducts: byProducts,
		Batches:    batches,
		now:        timeutil.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// StartShift opens a session for a line and shift type. The database's
// partial unique index is the real guard against double-open; the
// pre-check just gives a cleaner error for the common case.
func (s *ShiftService) StartShift(ctx context.Context, req *models.StartShiftRequest, operatorID int) (*models.Shift, error) {
	if req.LineID == 0 {
		return nil, production.Validation("lineId", "required")
	}
	if _, err := s.Shifts.GetShiftType(ctx, req.ShiftTypeID); err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("shift type", "")
		}
		return nil, production.Remote("load shift type", err)
	}

	if existing, err := s.Shifts.GetActive(ctx, req.ShiftTypeID); err == nil && existing.LineID == req.LineID {
		return nil, production.Validation("shiftTypeId", "a shift of this type is already open on this line")
	}

	shift := &models.Shift{
		LineID:      req.LineID,
		ShiftTypeID: req.ShiftTypeID,
		OperatorID:  operatorID,
	}
	if err := s.Shifts.Create(ctx, shift); err != nil {
		return nil, production.Remote("start shift", err)
	}

	cache.InvalidateActiveShift(ctx, shift.LineID, shift.ShiftTypeID)
	log.Printf("[Shift] opened shift %d (line %d, type %d)", shift.ID, shift.LineID, shift.ShiftTypeID)
	return shift, nil
}

// EndShift closes a shift and records the waste form. Zero-weight
// entries are dropped so the pre-filled catalog rows the operator left
// untouched never reach the table. Closing an already-closed shift is
// reported as a validation error, not a conflict crash.
func (s *ShiftService) EndShift(ctx context.Context, shiftID int, req *models.EndShiftRequest) (*models.ShiftSummary, error) {
	shift, err := s.Shifts.Close(ctx, shiftID, req.Remark, false, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyClosed) {
			if _, getErr := s.Shifts.Get(ctx, shiftID); getErr != nil {
				if errors.Is(getErr, repositories.ErrNoRows) {
					return nil, production.NotFound("shift", "")
				}
				return nil, production.Remote("load shift", getErr)
			}
			return nil, production.Validation("shiftId", "shift already closed")
		}
		return nil, production.Remote("end shift", err)
	}

	for _, w := range req.Waste {
		if w.Weight <= 0 {
			continue
		}
		if !models.KnownStation(w.StationID) {
			return nil, production.Validation("waste.stationId", "unknown station")
		}
		bp := &models.ByProduct{
			ShiftID:   shiftID,
			StationID: w.StationID,
			Name:      w.Name,
			Category:  w.Category,
			Weight:    w.Weight,
		}
		if err := s.ByProducts.Upsert(ctx, bp); err != nil {
			return nil, production.Remote("record by-product", err)
		}
	}

	cache.InvalidateActiveShift(ctx, shift.LineID, shift.ShiftTypeID)
	log.Printf("[Shift] closed shift %d (line %d)", shift.ID, shift.LineID)
	return s.summarize(ctx, shift)
}

func (s *ShiftService) summarize(ctx context.Context, shift *models.Shift) (*models.ShiftSummary, error) {
	totals, err := s.Batches.ShiftTotals(ctx, shift.ID)
	if err != nil {
		return nil, production.Remote("shift totals", err)
	}
	byProducts, err := s.ByProducts.ListByShift(ctx, shift.ID)
	if err != nil {
		return nil, production.Remote("list by-products", err)
	}
	return &models.ShiftSummary{Shift: shift, Totals: totals, ByProducts: byProducts}, nil
}

// ActiveShift returns the open shift for a shift type, or a NotFound
// that the handler maps to an empty 200 (no active shift is a normal
// state, not a failure).
func (s *ShiftService) ActiveShift(ctx context.Context, shiftTypeID int) (*models.Shift, error) {
	shift, err := s.Shifts.GetActive(ctx, shiftTypeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("active shift", "")
		}
		return nil, production.Remote("load active shift", err)
	}
	return shift, nil
}

// ShiftStatus reports whether a shift is open and, if open, when the
// watcher would force-close it.
func (s *ShiftService) ShiftStatus(ctx context.Context, shiftID int) (map[string]any, error) {
	shift, err := s.Shifts.Get(ctx, shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("shift", "")
		}
		return nil, production.Remote("load shift", err)
	}
	status := map[string]any{
		"shiftId": shift.ID,
		"open":    shift.Open(),
	}
	if shift.Open() {
		st, err := s.Shifts.GetShiftType(ctx, shift.ShiftTypeID)
		if err == nil {
			status["expiresAt"] = timeutil.ToIST(shift.ExpiresAt(st))
		}
	} else {
		status["endTime"] = shift.EndTime
		status["autoClosed"] = shift.AutoClosed
	}
	return status, nil
}

// Summary rebuilds the close-time summary for any shift.
func (s *ShiftService) Summary(ctx context.Context, shiftID int) (*models.ShiftSummary, error) {
	shift, err := s.Shifts.Get(ctx, shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("shift", "")
		}
		return nil, production.Remote("load shift", err)
	}
	return s.summarize(ctx, shift)
}

// ClosedShifts lists recently closed shifts for the supervisor review
// screen.
func (s *ShiftService) ClosedShifts(ctx context.Context, limit int) ([]*models.Shift, error) {
	shifts, err := s.Shifts.ListClosed(ctx, limit)
	if err != nil {
		return nil, production.Remote("list closed shifts", err)
	}
	if shifts == nil {
		shifts = []*models.Shift{}
	}
	return shifts, nil
}

// StartExpiryWatcher runs the auto-close sweep on a ticker until Stop.
// The first sweep runs immediately so a restart picks up overdue
// shifts without waiting a full interval.
func (s *ShiftService) StartExpiryWatcher(intervalMinutes int) {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
		defer ticker.Stop()

		s.sweepExpired()
		for {
			select {
			case <-ticker.C:
				s.sweepExpired()
			case <-s.stop:
				return
			}
		}
	}()
	log.Printf("[Shift] expiry watcher started (every %d min)", intervalMinutes)
}

// Stop halts the expiry watcher and waits for the in-flight sweep.
func (s *ShiftService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// sweepExpired force-closes every open shift past its grace window.
// Auto-close is bookkeeping, not an error: production logged before the
// close stays valid, and the shift is marked so reports can tell the
// difference.
func (s *ShiftService) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	open, err := s.Shifts.ListOpen(ctx)
	if err != nil {
		log.Printf("[Shift] expiry sweep failed to list open shifts: %v", err)
		return
	}

	now := s.now()
	for _, shift := range open {
		st, err := s.Shifts.GetShiftType(ctx, shift.ShiftTypeID)
		if err != nil {
			log.Printf("[Shift] expiry sweep: shift %d has unknown type %d: %v", shift.ID, shift.ShiftTypeID, err)
			continue
		}
		expiry := shift.ExpiresAt(st)
		if !now.After(expiry) {
			continue
		}

		remark := fmt.Sprintf("Auto-closed: shift exceeded %s end + %d min grace",
			st.Name, st.GraceMinutes)
		if _, err := s.Shifts.Close(ctx, shift.ID, remark, true, now); err != nil {
			if errors.Is(err, repositories.ErrAlreadyClosed) {
				continue // operator closed it between list and update
			}
			log.Printf("[Shift] auto-close of shift %d failed: %v", shift.ID, err)
			continue
		}
		metrics.ShiftsAutoClosedTotal.Inc()
		cache.InvalidateActiveShift(ctx, shift.LineID, shift.ShiftTypeID)
		log.Printf("[Shift] auto-closed shift %d (line %d, overdue since %s)",
			shift.ID, shift.LineID, timeutil.ToIST(expiry).Format(timeutil.DateTimeLayout))
	}
}

// RecordByProducts persists waste-form entries for a shift outside the
// close call. With replace set, the shift's existing set is rewritten
// wholesale (PUT semantics); otherwise entries upsert by name.
// Zero-weight entries are dropped either way.
func (s *ShiftService) RecordByProducts(ctx context.Context, shiftID int, waste []models.ByProductInput, replace bool) ([]models.ByProduct, error) {
	if _, err := s.Shifts.Get(ctx, shiftID); err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.NotFound("shift", "")
		}
		return nil, production.Remote("load shift", err)
	}

	if replace {
		if err := s.ByProducts.DeleteByShift(ctx, shiftID); err != nil {
			return nil, production.Remote("clear by-products", err)
		}
	}
	for _, w := range waste {
		if w.Weight <= 0 {
			continue
		}
		if !models.KnownStation(w.StationID) {
			return nil, production.Validation("waste.stationId", "unknown station")
		}
		bp := &models.ByProduct{
			ShiftID:   shiftID,
			StationID: w.StationID,
			Name:      w.Name,
			Category:  w.Category,
			Weight:    w.Weight,
		}
		if err := s.ByProducts.Upsert(ctx, bp); err != nil {
			return nil, production.Remote("record by-product", err)
		}
	}
	return s.ListByProducts(ctx, shiftID)
}

// ListByProducts returns a shift's recorded by-products.
func (s *ShiftService) ListByProducts(ctx context.Context, shiftID int) ([]models.ByProduct, error) {
	out, err := s.ByProducts.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, production.Remote("list by-products", err)
	}
	if out == nil {
		out = []models.ByProduct{}
	}
	return out, nil
}

// ShiftTypes, Lines and MaterialTypes expose master data for the app's
// pickers.
func (s *ShiftService) ShiftTypes(ctx context.Context) ([]*models.ShiftType, error) {
	out, err := s.Shifts.ListShiftTypes(ctx)
	if err != nil {
		return nil, production.Remote("list shift types", err)
	}
	return out, nil
}

func (s *ShiftService) Lines(ctx context.Context) ([]*models.ProductionLine, error) {
	out, err := s.Shifts.ListLines(ctx)
	if err != nil {
		return nil, production.Remote("list lines", err)
	}
	return out, nil
}

func (s *ShiftService) MaterialTypes(ctx context.Context) ([]*models.MaterialType, error) {
	out, err := s.Shifts.ListMaterialTypes(ctx)
	if err != nil {
		return nil, production.Remote("list material types", err)
	}
	return out, nil
}
