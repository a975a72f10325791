package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"recycle-backend/internal/cache"
	"recycle-backend/internal/middleware"
	"recycle-backend/internal/models"
	"recycle-backend/internal/repositories"
	"recycle-backend/internal/services"
	"recycle-backend/internal/timeutil"
	"recycle-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// ProductionHandler exposes the batch ledger and shift lifecycle to
// the line-side clients.
type ProductionHandler struct {
	Batches   *services.BatchService
	Shifts    *services.ShiftService
	Reports   *services.ReportService
	BatchRepo *repositories.BatchRepository
}

func NewProductionHandler(batches *services.BatchService, shifts *services.ShiftService, reports *services.ReportService, batchRepo *repositories.BatchRepository) *ProductionHandler {
	return &ProductionHandler{Batches: batches, Shifts: shifts, Reports: reports, BatchRepo: batchRepo}
}

// CreateLog handles POST /production/log.
func (h *ProductionHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	materialTypeID, _ := middleware.GetMaterialTypeIDFromContext(r.Context())
	batch, err := h.Batches.CreateBatch(r.Context(), &req, materialTypeID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, batch)
}

// GetLog handles GET /production/log/{qr}.
func (h *ProductionHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Batches.GetBatch(r.Context(), mux.Vars(r)["qr"])
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batch)
}

// NextQr handles GET /production/next-qr.
func (h *ProductionHandler) NextQr(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stationID, _ := strconv.Atoi(q.Get("stationId"))
	shiftID, _ := strconv.Atoi(q.Get("shiftId"))

	next, err := h.Batches.NextQr(r.Context(), stationID, shiftID, q.Get("subLine"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, next)
}

// SearchLogs handles GET /production/search-logs: the matcher behind
// the input-linking screen.
func (h *ProductionHandler) SearchLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetStationID, _ := strconv.Atoi(q.Get("targetStationId"))
	currentStationID, _ := strconv.Atoi(q.Get("currentStationId"))

	batches, err := h.Batches.Search(r.Context(), q.Get("query"), targetStationID, currentStationID, q.Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batches)
}

// ResolveScan handles POST /production/resolve-scan: validate a
// scanned label without consuming it.
func (h *ProductionHandler) ResolveScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload         string `json:"payload"`
		SourceStationID int    `json:"sourceStationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch, err := h.Batches.ResolveScan(r.Context(), req.Payload, req.SourceStationID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batch)
}

// UpdateLogStatus handles PUT /production/update-log-status: the
// consume-in-place transition.
func (h *ProductionHandler) UpdateLogStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch, err := h.Batches.UpdateStatus(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batch)
}

// UpdateLogWeight handles PUT /production/update-log-weight. Routed
// behind RequireRole(supervisor).
func (h *ProductionHandler) UpdateLogWeight(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	batch, err := h.Batches.CorrectWeight(r.Context(), req.LogID, req.Weight)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batch)
}

// StationLogsFor serves the paginated history screen of one station:
// GET /production/crusher-logs, washing-logs, extrusion-logs.
func (h *ProductionHandler) StationLogsFor(stationID int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.stationLogs(w, r, stationID)
	}
}

func (h *ProductionHandler) stationLogs(w http.ResponseWriter, r *http.Request, stationID int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var dayStart, dayEnd interface{}
	if d := q.Get("date"); d != "" {
		day, err := time.ParseInLocation(timeutil.DateLayout, d, timeutil.IST)
		if err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		dayStart = timeutil.StartOfDay(day)
		dayEnd = timeutil.EndOfDay(day)
	}

	batches, total, err := h.BatchRepo.ListByStation(r.Context(), stationID,
		q.Get("subLine"), q.Get("status"), q.Get("search"), dayStart, dayEnd, page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	if batches == nil {
		batches = []*models.Batch{}
	}
	utils.Success(w, http.StatusOK, map[string]any{
		"logs":  batches,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ShiftLogs handles GET /production/logs/{shiftId}.
func (h *ProductionHandler) ShiftLogs(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	batches, err := h.Batches.ListByShift(r.Context(), shiftID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, batches)
}

// StartShift handles POST /production/start-shift.
func (h *ProductionHandler) StartShift(w http.ResponseWriter, r *http.Request) {
	var req models.StartShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	operatorID, _ := middleware.GetUserIDFromContext(r.Context())
	shift, err := h.Shifts.StartShift(r.Context(), &req, operatorID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, shift)
}

// EndShift handles POST /production/end-shift/{shiftId}.
func (h *ProductionHandler) EndShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}

	var req models.EndShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.Shifts.EndShift(r.Context(), shiftID, &req)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, summary)
}

// ActiveShift handles GET /production/active-shift. No open shift is a
// normal state: the client gets a 200 with null data and shows the
// start-shift screen. The open shift (when present) is served from
// Redis for the app's frequent focus checks.
func (h *ProductionHandler) ActiveShift(w http.ResponseWriter, r *http.Request) {
	shiftTypeID, err := strconv.Atoi(r.URL.Query().Get("shiftTypeId"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "shiftTypeId required")
		return
	}
	lineID, _ := strconv.Atoi(r.URL.Query().Get("lineId"))

	if body, ok := cache.GetCachedActiveShift(r.Context(), lineID, shiftTypeID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	shift, err := h.Shifts.ActiveShift(r.Context(), shiftTypeID)
	if err != nil {
		if _, notFound := errAsNotFound(err); notFound {
			utils.Success(w, http.StatusOK, nil)
			return
		}
		respondError(w, err)
		return
	}

	body, merr := json.Marshal(utils.Envelope{Success: true, Data: shift})
	if merr == nil {
		cache.CacheActiveShift(r.Context(), shift.LineID, shift.ShiftTypeID, body)
	}
	utils.Success(w, http.StatusOK, shift)
}

// ShiftStatus handles GET /production/shift-status/{shiftId}.
func (h *ProductionHandler) ShiftStatus(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	status, err := h.Shifts.ShiftStatus(r.Context(), shiftID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, status)
}

// ShiftSummary handles GET /production/closed-shift/{shiftId}/summary.
func (h *ProductionHandler) ShiftSummary(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	summary, err := h.Shifts.Summary(r.Context(), shiftID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, summary)
}

// ClosedShifts handles GET /production/closed-shifts.
func (h *ProductionHandler) ClosedShifts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	shifts, err := h.Shifts.ClosedShifts(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, shifts)
}

// byProductsBody is the waste form as POST/PUT /production/by-products
// carry it.
type byProductsBody struct {
	ShiftID int                     `json:"shiftId,omitempty"`
	Waste   []models.ByProductInput `json:"waste"`
}

// CreateByProducts handles POST /production/by-products: upsert waste
// entries for a shift by name.
func (h *ProductionHandler) CreateByProducts(w http.ResponseWriter, r *http.Request) {
	var req byProductsBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.Shifts.RecordByProducts(r.Context(), req.ShiftID, req.Waste, false)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, out)
}

// GetByProducts handles GET /production/shift/{shiftId}/by-products.
func (h *ProductionHandler) GetByProducts(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	out, err := h.Shifts.ListByProducts(r.Context(), shiftID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, out)
}

// PutByProducts handles PUT /production/shift/{shiftId}/by-products:
// full rewrite of the shift's waste set.
func (h *ProductionHandler) PutByProducts(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}
	var req byProductsBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.Shifts.RecordByProducts(r.Context(), shiftID, req.Waste, true)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, out)
}

// ShiftReport handles GET /production/shift/{shiftId}/report: the
// printable PDF.
func (h *ProductionHandler) ShiftReport(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.Atoi(mux.Vars(r)["shiftId"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid shift id")
		return
	}

	pdf, err := h.Reports.ShiftReport(r.Context(), shiftID)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="shift-%d-report.pdf"`, shiftID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
