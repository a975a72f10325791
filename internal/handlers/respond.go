package handlers

import (
	"errors"
	"log"
	"net/http"

	"recycle-backend/internal/production"
	"recycle-backend/pkg/utils"
)

// respondError maps the production error taxonomy onto HTTP statuses:
// validation -> 400, not found -> 404, invalid transition -> 409,
// anything remote -> 500 with the detail kept server-side.
func respondError(w http.ResponseWriter, err error) {
	var ve *production.ValidationError
	if errors.As(err, &ve) {
		utils.Error(w, http.StatusBadRequest, ve.Error())
		return
	}
	var nf *production.NotFoundError
	if errors.As(err, &nf) {
		utils.Error(w, http.StatusNotFound, nf.Error())
		return
	}
	var it *production.InvalidTransitionError
	if errors.As(err, &it) {
		utils.Error(w, http.StatusConflict, it.Error())
		return
	}
	log.Printf("[HTTP] internal error: %v", err)
	utils.Error(w, http.StatusInternalServerError, "internal error")
}

// errAsNotFound lets handlers treat "nothing there" as a normal state
// instead of a 404 where the client expects an empty 200.
func errAsNotFound(err error) (*production.NotFoundError, bool) {
	var nf *production.NotFoundError
	ok := errors.As(err, &nf)
	return nf, ok
}
