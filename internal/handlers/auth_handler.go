package handlers

import (
	"encoding/json"
	"net/http"

	"recycle-backend/internal/models"
	"recycle-backend/internal/services"
	"recycle-backend/pkg/utils"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Auth.Login(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, resp)
}
