package repositories

import (
	"context"
	"errors"
	"fmt"

	"recycle-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows is surfaced by lookups so callers can map a miss without
// importing pgx.
var ErrNoRows = pgx.ErrNoRows

// ErrNotPending is returned by UpdateStatusIfPending when the
// conditional update matched no row because the batch had already left
// the pending state.
var ErrNotPending = errors.New("batch is not pending")

const batchColumns = `id, shift_id, station_id, COALESCE(sub_line, ''), COALESCE(input_bag_qr, ''),
	output_bag_qr, weight, status, COALESCE(used_line, ''), COALESCE(material_type_id, 0), created_at`

type BatchRepository struct {
	DB *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{DB: db}
}

func scanBatch(row pgx.Row) (*models.Batch, error) {
	var b models.Batch
	err := row.Scan(&b.ID, &b.ShiftID, &b.StationID, &b.SubLine, &b.InputBagQr,
		&b.OutputBagQr, &b.Weight, &b.Status, &b.UsedLine, &b.MaterialTypeID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBatches(rows pgx.Rows) ([]*models.Batch, error) {
	defer rows.Close()
	var out []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// NextSequence returns the next per-station/sub-line/shift label
// sequence: one past the number of bags this line has produced in the
// shift so far.
func (r *BatchRepository) NextSequence(ctx context.Context, stationID, shiftID int, subLine string) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM production_logs
		WHERE station_id = $1 AND shift_id = $2 AND COALESCE(sub_line, '') = $3
	`, stationID, shiftID, subLine).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count shift outputs: %w", err)
	}
	return count + 1, nil
}

// Create appends a batch row. The output_bag_qr unique index is the
// last line of defense against two devices previewing the same label.
func (r *BatchRepository) Create(ctx context.Context, b *models.Batch) error {
	query := `
		INSERT INTO production_logs (shift_id, station_id, sub_line, input_bag_qr, output_bag_qr, weight, status, material_type_id)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, NULLIF($8, 0))
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		b.ShiftID,
		b.StationID,
		b.SubLine,
		b.InputBagQr,
		b.OutputBagQr,
		b.Weight,
		b.Status,
		b.MaterialTypeID,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *BatchRepository) GetByQr(ctx context.Context, outputBagQr string) (*models.Batch, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM production_logs WHERE output_bag_qr = $1`, outputBagQr)
	return scanBatch(row)
}

func (r *BatchRepository) GetByID(ctx context.Context, id int) (*models.Batch, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM production_logs WHERE id = $1`, id)
	return scanBatch(row)
}

// UpdateStatusIfPending performs the single most important transition
// in the system: pending -> newStatus, atomically, only if the row is
// still pending. Two devices racing to claim the same bag cannot both
// win; the loser gets ErrNotPending.
func (r *BatchRepository) UpdateStatusIfPending(ctx context.Context, outputBagQr, newStatus, usedLine string) (*models.Batch, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE production_logs
		SET status = $2, used_line = NULLIF($3, '')
		WHERE output_bag_qr = $1 AND status = 'pending'
		RETURNING `+batchColumns,
		outputBagQr, newStatus, usedLine)

	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotPending
	}
	return b, err
}

// UpdateWeight corrects a mis-recorded weight in place. Status and
// chain-of-custody fields are untouched.
func (r *BatchRepository) UpdateWeight(ctx context.Context, id int, weight float64) (*models.Batch, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE production_logs SET weight = $2 WHERE id = $1
		RETURNING `+batchColumns,
		id, weight)
	return scanBatch(row)
}

// Search matches query as a substring of output_bag_qr among batches
// of the target station with the given status, most recent first.
// When currentStationID > 0 the requesting station is enforced: rows
// carrying a used_line are never re-offered, even if their status is
// somehow still pending (partial claims seen during network flaps).
func (r *BatchRepository) Search(ctx context.Context, query string, targetStationID, currentStationID int, status string) ([]*models.Batch, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+batchColumns+`
		FROM production_logs
		WHERE station_id = $1
		  AND status = $2
		  AND output_bag_qr ILIKE '%' || $3 || '%'
		  AND ($4 = 0 OR used_line IS NULL)
		ORDER BY created_at DESC
		LIMIT 20
	`, targetStationID, status, query, currentStationID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

// ListByShift returns the full ledger slice for one shift, oldest first.
func (r *BatchRepository) ListByShift(ctx context.Context, shiftID int) ([]*models.Batch, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+batchColumns+` FROM production_logs
		WHERE shift_id = $1 ORDER BY created_at ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	return collectBatches(rows)
}

// ListByStation serves the paginated station history screens. All
// filters are optional; date scopes to one IST day.
func (r *BatchRepository) ListByStation(ctx context.Context, stationID int, subLine, status, search string, dayStart, dayEnd interface{}, page, limit int) ([]*models.Batch, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := `station_id = $1
	  AND ($2 = '' OR COALESCE(sub_line, '') = $2)
	  AND ($3 = '' OR status = $3)
	  AND ($4 = '' OR output_bag_qr ILIKE '%' || $4 || '%')
	  AND ($5::timestamptz IS NULL OR created_at >= $5)
	  AND ($6::timestamptz IS NULL OR created_at <= $6)`

	var total int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM production_logs WHERE `+where,
		stationID, subLine, status, search, dayStart, dayEnd).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT `+batchColumns+` FROM production_logs WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $7 OFFSET $8
	`, stationID, subLine, status, search, dayStart, dayEnd, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	batches, err := collectBatches(rows)
	return batches, total, err
}

// ShiftTotals aggregates bag count and weight per station for a shift.
// A pure projection of the ledger: recomputing it twice over the same
// rows yields identical results.
func (r *BatchRepository) ShiftTotals(ctx context.Context, shiftID int) ([]models.StationTotals, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT station_id, COUNT(*), COALESCE(SUM(weight), 0)
		FROM production_logs
		WHERE shift_id = $1
		GROUP BY station_id
		ORDER BY station_id
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StationTotals
	for rows.Next() {
		var t models.StationTotals
		if err := rows.Scan(&t.StationID, &t.Bags, &t.TotalWeight); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
