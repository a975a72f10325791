package repositories

import (
	"context"

	"recycle-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ByProductRepository struct {
	DB *pgxpool.Pool
}

func NewByProductRepository(db *pgxpool.Pool) *ByProductRepository {
	return &ByProductRepository{DB: db}
}

// Upsert records one by-product weight for a shift+station. The close
// form can be re-submitted; the last weight wins.
func (r *ByProductRepository) Upsert(ctx context.Context, bp *models.ByProduct) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO by_products (shift_id, station_id, name, category, weight)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shift_id, station_id, name)
		DO UPDATE SET weight = EXCLUDED.weight, category = EXCLUDED.category
		RETURNING id
	`, bp.ShiftID, bp.StationID, bp.Name, bp.Category, bp.Weight).Scan(&bp.ID)
}

// ListByShift returns all by-products recorded for a shift.
func (r *ByProductRepository) ListByShift(ctx context.Context, shiftID int) ([]models.ByProduct, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, shift_id, station_id, name, COALESCE(category, ''), weight
		FROM by_products WHERE shift_id = $1 ORDER BY station_id, name
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ByProduct
	for rows.Next() {
		var bp models.ByProduct
		if err := rows.Scan(&bp.ID, &bp.ShiftID, &bp.StationID, &bp.Name, &bp.Category, &bp.Weight); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

// DeleteByShift clears a shift's by-products before a full rewrite
// (PUT semantics on the close form).
func (r *ByProductRepository) DeleteByShift(ctx context.Context, shiftID int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM by_products WHERE shift_id = $1`, shiftID)
	return err
}
