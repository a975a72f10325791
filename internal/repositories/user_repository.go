package repositories

import (
	"context"

	"recycle-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, employee_id, name, COALESCE(email, ''), password_hash, role,
	COALESCE(material_type_id, 0), is_active, last_login_at, created_at, updated_at`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.EmployeeID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.MaterialTypeID, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*models.User, error) {
	var u models.User
	err := r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE employee_id = $1`, employeeID).
		Scan(&u.ID, &u.EmployeeID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
			&u.MaterialTypeID, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO users (employee_id, name, email, password_hash, role, material_type_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
		RETURNING id, created_at, updated_at
	`, u.EmployeeID, u.Name, u.Email, u.PasswordHash, u.Role, u.MaterialTypeID).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}
