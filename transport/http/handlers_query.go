package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/barterloop/matchingengine/domain/trade"
	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
	"github.com/barterloop/matchingengine/internal/coordinator"
	"github.com/barterloop/matchingengine/internal/integrity"
)

func toSubmitResultResponse(r coordinator.SubmitResult) submitResultResponse {
	out := submitResultResponse{Ok: r.Ok, NewCyclesDiscovered: r.NewCyclesDiscovered}
	for _, rej := range r.Rejected {
		out.Rejected = append(out.Rejected, rejectedItemResponse{ItemID: string(rej.ItemID), Reason: string(rej.Reason)})
	}
	return out
}

type cycleStepResponse struct {
	From            string              `json:"from"`
	To              string              `json:"to"`
	Items           []inventoryItem     `json:"items"`
	CollectionTrade bool                `json:"collectionTrade,omitempty"`
}

type cycleResponse struct {
	Signature       string              `json:"signature"`
	Steps           []cycleStepResponse `json:"steps"`
	Score           float64             `json:"score"`
	CollectionTrade bool                `json:"collectionTrade,omitempty"`
	Status          string              `json:"status"`
}

func toCycleResponse(c trade.Cycle) cycleResponse {
	out := cycleResponse{
		Signature:       c.Signature.String(),
		Score:           c.Score,
		CollectionTrade: c.CollectionTrade,
		Status:          string(c.Status),
	}
	for _, step := range c.Steps {
		items := make([]inventoryItem, len(step.Items))
		for i, it := range step.Items {
			items[i] = inventoryItem{ID: string(it.ID), CollectionID: string(it.CollectionID), ValueHint: it.ValueHint}
		}
		out.Steps = append(out.Steps, cycleStepResponse{
			From:            string(step.From),
			To:              string(step.To),
			Items:           items,
			CollectionTrade: step.CollectionTrade,
		})
	}
	return out
}

// handleQueryCycles implements queryCycles: reads straight from the
// CycleStore, bypassing the writer queue entirely.
func (s *Server) handleQueryCycles(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := queryInt(r, "limit", 0)
	minScore := queryFloat(r, "minScore", 0)
	cycles := bundle.Coordinator.QueryCycles(ownerID, limit, minScore)
	out := make([]cycleResponse, len(cycles))
	for i, c := range cycles {
		out[i] = toCycleResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleQueryCycleByID implements queryCycleById.
func (s *Server) handleQueryCycleByID(w http.ResponseWriter, r *http.Request) {
	tenantID := trade.TenantID(mux.Vars(r)["tenantId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	sig, err := decodeSignature(mux.Vars(r)["signature"])
	if err != nil {
		writeError(w, err)
		return
	}
	cyc, ok := bundle.Coordinator.QueryCycleByID(sig)
	if !ok {
		writeError(w, engineerrors.New(engineerrors.CodeUnknownItem, "unknown cycle signature", http.StatusNotFound))
		return
	}
	writeJSON(w, http.StatusOK, toCycleResponse(cyc))
}

// handleSystemState implements systemState.
func (s *Server) handleSystemState(w http.ResponseWriter, r *http.Request) {
	tenantID := trade.TenantID(mux.Vars(r)["tenantId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle.Coordinator.State())
}

type integrityReportResponse struct {
	OK              bool               `json:"ok"`
	Issues          []integrity.Issue  `json:"issues,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// handleValidateIntegrity implements validateIntegrity, reading state and
// the store directly since validation is read-only and does not need to
// serialize through the writer.
func (s *Server) handleValidateIntegrity(w http.ResponseWriter, r *http.Request) {
	tenantID := trade.TenantID(mux.Vars(r)["tenantId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	report, _ := integrity.Validate(bundle.State, bundle.Store)
	writeJSON(w, http.StatusOK, integrityReportResponse{OK: report.OK, Issues: report.Issues, Recommendations: report.Recommendations})
}

// handleExportGraph exposes the ownership/want graph for visualization.
func (s *Server) handleExportGraph(w http.ResponseWriter, r *http.Request) {
	tenantID := trade.TenantID(mux.Vars(r)["tenantId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, integrity.ExportGraph(bundle.State))
}
