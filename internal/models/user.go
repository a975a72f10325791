package models

import "time"

type User struct {
	ID             int       `json:"id"`
	EmployeeID     string    `json:"employee_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Never expose in JSON
	Role           string    `json:"role"` // operator or supervisor
	MaterialTypeID int       `json:"material_type_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
)

// LoginRequest represents the request body for login
type LoginRequest struct {
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
