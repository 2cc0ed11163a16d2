package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/infrastructure/metrics"
	"github.com/barterloop/matchingengine/internal/app"
)

// Server bundles the App with the handler dependencies the router closes
// over.
type Server struct {
	app     *app.App
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewRouter builds the full gorilla/mux router for every tenant-scoped
// operation plus health and metrics endpoints. Tenant provisioning is not
// exposed here: tenants are created at process start from configuration.
func NewRouter(a *app.App, log *logging.Logger, m *metrics.Metrics, serviceName string) *mux.Router {
	s := &Server{app: a, log: log, metrics: m}

	r := mux.NewRouter()
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(serviceName, m))

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	t := r.PathPrefix("/tenants/{tenantId}").Subrouter()
	t.HandleFunc("/owners/{ownerId}/inventory", s.handleSubmitInventory).Methods("POST")
	t.HandleFunc("/owners/{ownerId}/inventory", s.handleRemoveInventory).Methods("DELETE")
	t.HandleFunc("/owners/{ownerId}/wants", s.handleSubmitWants).Methods("POST")
	t.HandleFunc("/owners/{ownerId}/wants", s.handleRemoveWants).Methods("DELETE")
	t.HandleFunc("/owners/{ownerId}/collection-wants/{collectionId}", s.handleSubmitCollectionWant).Methods("POST")
	t.HandleFunc("/owners/{ownerId}/collection-wants/{collectionId}", s.handleRemoveCollectionWant).Methods("DELETE")
	t.HandleFunc("/owners/{ownerId}/rejections", s.handleRecordRejection).Methods("POST")
	t.HandleFunc("/owners/{ownerId}/rescan", s.handleRescan).Methods("POST")
	t.HandleFunc("/owners/{ownerId}/cycles", s.handleQueryCycles).Methods("GET")
	t.HandleFunc("/cycles/{signature}", s.handleQueryCycleByID).Methods("GET")
	t.HandleFunc("/state", s.handleSystemState).Methods("GET")
	t.HandleFunc("/integrity", s.handleValidateIntegrity).Methods("GET")
	t.HandleFunc("/graph", s.handleExportGraph).Methods("GET")

	return r
}

type healthzResponse struct {
	Status          string  `json:"status"`
	Tenants         int     `json:"tenants"`
	MemoryUsedPct   float64 `json:"memoryUsedPercent,omitempty"`
	LoadAverage1Min float64 `json:"loadAverage1Min,omitempty"`
}

// handleHealthz reports liveness plus a light host-resource snapshot, so an
// operator can tell a degraded host from a degraded tenant without a
// separate metrics scrape.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{Status: "ok", Tenants: len(s.app.List())}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryUsedPct = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		resp.LoadAverage1Min = avg.Load1
	}
	writeJSON(w, http.StatusOK, resp)
}
