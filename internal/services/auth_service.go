package services

import (
	"context"
	"errors"
	"log"

	"recycle-backend/internal/auth"
	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
	"recycle-backend/internal/repositories"
)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	GetByEmployeeID(ctx context.Context, employeeID string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id int) error
}

type AuthService struct {
	Users UserStore
	JWT   *auth.JWTManager
}

func NewAuthService(users UserStore, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{Users: users, JWT: jwtManager}
}

// Login authenticates by employee ID + password. Wrong ID and wrong
// password return the same error so the login form leaks nothing.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.EmployeeID == "" || req.Password == "" {
		return nil, production.Validation("credentials", "employee ID and password required")
	}

	user, err := s.Users.GetByEmployeeID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRows) {
			return nil, production.Validation("credentials", "invalid employee ID or password")
		}
		return nil, production.Remote("load user", err)
	}
	if !user.IsActive {
		return nil, production.Validation("credentials", "account disabled")
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, production.Validation("credentials", "invalid employee ID or password")
	}

	token, err := s.JWT.GenerateToken(user)
	if err != nil {
		return nil, production.Remote("sign token", err)
	}
	if err := s.Users.TouchLastLogin(ctx, user.ID); err != nil {
		log.Printf("[Auth] last-login update failed for user %d: %v", user.ID, err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}
