package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"recycle-backend/internal/cache"
	"recycle-backend/internal/models"
	"recycle-backend/internal/services"
	"recycle-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// StationLister is the slice of the shift repository the master-data
// handler reads stations from.
type StationLister interface {
	ListStations(ctx context.Context) ([]*models.Station, error)
}

// MasterDataHandler serves the reference data the operator app loads
// at startup: stations, sub-lines, lines, materials, shift schedules
// and the by-product catalog.
type MasterDataHandler struct {
	Stations StationLister
	Shifts   *services.ShiftService
}

func NewMasterDataHandler(stations StationLister, shifts *services.ShiftService) *MasterDataHandler {
	return &MasterDataHandler{Stations: stations, Shifts: shifts}
}

// stationView decorates the stored station row with the graph data the
// app needs: sub-lines and the enforced upstream.
type stationView struct {
	models.Station
	SubLines   []string `json:"sub_lines,omitempty"`
	UpstreamID int      `json:"upstream_id,omitempty"`
}

// GetStations handles GET /production/stations. Station data is immutable in
// practice, so the whole response body is cached in Redis.
func (h *MasterDataHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	if body, ok := cache.GetCachedStations(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	stations, err := h.Stations.ListStations(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	views := make([]stationView, 0, len(stations))
	for _, st := range stations {
		views = append(views, stationView{
			Station:    *st,
			SubLines:   models.SubLines(st.ID),
			UpstreamID: models.UpstreamOf(st.ID),
		})
	}

	body, err := json.Marshal(utils.Envelope{Success: true, Data: views})
	if err != nil {
		respondError(w, err)
		return
	}
	cache.CacheStations(r.Context(), body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GetLines handles GET /production/lines.
func (h *MasterDataHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Shifts.Lines(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, lines)
}

// GetMaterialTypes handles GET /production/materials.
func (h *MasterDataHandler) GetMaterialTypes(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Shifts.MaterialTypes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, materials)
}

// GetShiftTypes handles GET /production/shifts: the shift-type
// schedules.
func (h *MasterDataHandler) GetShiftTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Shifts.ShiftTypes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, types)
}

// GetByProductCatalog handles GET /production/stations/{stationId}/by-products:
// the fixed catalog the shift-close waste form is pre-filled from.
func (h *MasterDataHandler) GetByProductCatalog(w http.ResponseWriter, r *http.Request) {
	stationID, err := strconv.Atoi(mux.Vars(r)["stationId"])
	if err != nil || !models.KnownStation(stationID) {
		utils.Error(w, http.StatusBadRequest, "invalid station id")
		return
	}
	utils.Success(w, http.StatusOK, models.ByProductCatalog(stationID))
}
