package http

import (
	"net/http"

	"recycle-backend/internal/config"
	"recycle-backend/internal/handlers"
	"recycle-backend/internal/live"
	"recycle-backend/internal/middleware"
	"recycle-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router wires up.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Production *handlers.ProductionHandler
	MasterData *handlers.MasterDataHandler
	Health     *handlers.HealthHandler
	Live       *live.Hub
	AuthMW     *middleware.AuthMiddleware
}

// NewRouter assembles the full route table. Everything under
// /production and the master-data endpoints require a valid token;
// /auth/login, /health and /metrics do not.
func NewRouter(cfg *config.Config, h Handlers) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.PanicRecovery)
	r.Use(middleware.MetricsMiddleware)

	// Public
	r.HandleFunc("/health", h.Health.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Live dashboard feed; registered before the authenticated
	// /production subrouter because the browser websocket handshake
	// carries no Authorization header.
	r.HandleFunc("/production/live", h.Live.HandleWebSocket)

	// Everything else under /production requires a valid token.
	p := r.PathPrefix("/production").Subrouter()
	p.Use(h.AuthMW.Authenticate)

	// Master data the operator app loads at startup
	p.HandleFunc("/stations", h.MasterData.GetStations).Methods("GET")
	p.HandleFunc("/stations/{stationId:[0-9]+}/by-products", h.MasterData.GetByProductCatalog).Methods("GET")
	p.HandleFunc("/lines", h.MasterData.GetLines).Methods("GET")
	p.HandleFunc("/materials", h.MasterData.GetMaterialTypes).Methods("GET")
	p.HandleFunc("/shifts", h.MasterData.GetShiftTypes).Methods("GET")

	// The batch ledger
	p.HandleFunc("/log", h.Production.CreateLog).Methods("POST")
	p.HandleFunc("/log/{qr}", h.Production.GetLog).Methods("GET")
	p.HandleFunc("/next-qr", h.Production.NextQr).Methods("GET")
	p.HandleFunc("/search-logs", h.Production.SearchLogs).Methods("GET")
	p.HandleFunc("/resolve-scan", h.Production.ResolveScan).Methods("POST")
	p.HandleFunc("/update-log-status", h.Production.UpdateLogStatus).Methods("PUT")
	p.HandleFunc("/logs/{shiftId:[0-9]+}", h.Production.ShiftLogs).Methods("GET")
	p.HandleFunc("/crusher-logs", h.Production.StationLogsFor(models.StationCrusher)).Methods("GET")
	p.HandleFunc("/washing-logs", h.Production.StationLogsFor(models.StationWashing)).Methods("GET")
	p.HandleFunc("/extrusion-logs", h.Production.StationLogsFor(models.StationExtrusion)).Methods("GET")

	// Shift lifecycle
	p.HandleFunc("/start-shift", h.Production.StartShift).Methods("POST")
	p.HandleFunc("/end-shift/{shiftId:[0-9]+}", h.Production.EndShift).Methods("POST")
	p.HandleFunc("/active-shift", h.Production.ActiveShift).Methods("GET")
	p.HandleFunc("/shift-status/{shiftId:[0-9]+}", h.Production.ShiftStatus).Methods("GET")
	p.HandleFunc("/closed-shifts", h.Production.ClosedShifts).Methods("GET")
	p.HandleFunc("/closed-shift/{shiftId:[0-9]+}/summary", h.Production.ShiftSummary).Methods("GET")
	p.HandleFunc("/shift/{shiftId:[0-9]+}/report", h.Production.ShiftReport).Methods("GET")

	// By-products (shift-close waste form)
	p.HandleFunc("/by-products", h.Production.CreateByProducts).Methods("POST")
	p.HandleFunc("/shift/{shiftId:[0-9]+}/by-products", h.Production.GetByProducts).Methods("GET")
	p.HandleFunc("/shift/{shiftId:[0-9]+}/by-products", h.Production.PutByProducts).Methods("PUT")

	// Weight corrections are supervisor-only.
	sup := p.NewRoute().Subrouter()
	sup.Use(h.AuthMW.RequireRole(models.RoleSupervisor))
	sup.HandleFunc("/update-log-weight", h.Production.UpdateLogWeight).Methods("PUT")

	return middleware.NewCORS(cfg)(r)
}
