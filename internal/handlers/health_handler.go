package handlers

import (
	"net/http"

	"recycle-backend/internal/health"
	"recycle-backend/pkg/utils"
)

type HealthHandler struct {
	Checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{Checker: checker}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.Checker.Check(r.Context())
	code := http.StatusOK
	if status.Database != "healthy" {
		code = http.StatusServiceUnavailable
	}
	utils.JSON(w, code, status)
}
