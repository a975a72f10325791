package repositories

import (
	"context"
	"errors"
	"time"

	"recycle-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadyClosed is returned by Close when the shift had already
// been ended (by the operator or the expiry watcher).
var ErrAlreadyClosed = errors.New("shift already closed")

const shiftColumns = `id, line_id, shift_type_id, operator_id, start_time, end_time, COALESCE(remark, ''), auto_closed`

type ShiftRepository struct {
	DB *pgxpool.Pool
}

func NewShiftRepository(db *pgxpool.Pool) *ShiftRepository {
	return &ShiftRepository{DB: db}
}

func scanShift(row pgx.Row) (*models.Shift, error) {
	var s models.Shift
	err := row.Scan(&s.ID, &s.LineID, &s.ShiftTypeID, &s.OperatorID, &s.StartTime, &s.EndTime, &s.Remark, &s.AutoClosed)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create opens a shift. The partial unique index on
// (line_id, shift_type_id) WHERE end_time IS NULL enforces at most one
// open shift per shift-type per line; a violation surfaces as an error.
func (r *ShiftRepository) Create(ctx context.Context, s *models.Shift) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO shifts (line_id, shift_type_id, operator_id)
		VALUES ($1, $2, $3)
		RETURNING id, start_time
	`, s.LineID, s.ShiftTypeID, s.OperatorID).Scan(&s.ID, &s.StartTime)
}

func (r *ShiftRepository) Get(ctx context.Context, id int) (*models.Shift, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	return scanShift(row)
}

// GetActive returns the open shift for a shift type (any line), or
// pgx.ErrNoRows.
func (r *ShiftRepository) GetActive(ctx context.Context, shiftTypeID int) (*models.Shift, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE shift_type_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1
	`, shiftTypeID)
	return scanShift(row)
}

// Close ends a shift exactly once. The end_time IS NULL guard makes an
// operator close racing the expiry watcher resolve to a single winner.
func (r *ShiftRepository) Close(ctx context.Context, id int, remark string, autoClosed bool, endTime time.Time) (*models.Shift, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE shifts
		SET end_time = $2, remark = $3, auto_closed = $4
		WHERE id = $1 AND end_time IS NULL
		RETURNING `+shiftColumns,
		id, endTime, remark, autoClosed)
	s, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyClosed
	}
	return s, err
}

// ListOpen returns all open shifts, for the expiry sweep.
func (r *ShiftRepository) ListOpen(ctx context.Context) ([]*models.Shift, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE end_time IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListClosed returns recently closed shifts, newest first.
func (r *ShiftRepository) ListClosed(ctx context.Context, limit int) ([]*models.Shift, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE end_time IS NOT NULL
		ORDER BY end_time DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetShiftType loads the nominal schedule for a shift type.
func (r *ShiftRepository) GetShiftType(ctx context.Context, id int) (*models.ShiftType, error) {
	var st models.ShiftType
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, start_time, duration_minutes, grace_minutes
		FROM shift_types WHERE id = $1
	`, id).Scan(&st.ID, &st.Name, &st.StartTime, &st.DurationMinutes, &st.GraceMinutes)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListShiftTypes returns the shift-type master data.
func (r *ShiftRepository) ListShiftTypes(ctx context.Context) ([]*models.ShiftType, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, start_time, duration_minutes, grace_minutes
		FROM shift_types ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ShiftType
	for rows.Next() {
		var st models.ShiftType
		if err := rows.Scan(&st.ID, &st.Name, &st.StartTime, &st.DurationMinutes, &st.GraceMinutes); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// ListStations returns the station master data.
func (r *ShiftRepository) ListStations(ctx context.Context) ([]*models.Station, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, code, COALESCE(description, '') FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Code, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// ListLines returns the production-line master data.
func (r *ShiftRepository) ListLines(ctx context.Context) ([]*models.ProductionLine, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM production_lines ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ProductionLine
	for rows.Next() {
		var l models.ProductionLine
		if err := rows.Scan(&l.ID, &l.Name, &l.Description); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ListMaterialTypes returns the material-type master data.
func (r *ShiftRepository) ListMaterialTypes(ctx context.Context) ([]*models.MaterialType, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM material_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MaterialType
	for rows.Next() {
		var m models.MaterialType
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
