package http

import (
	"encoding/hex"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/barterloop/matchingengine/domain/trade"
	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
)

func (s *Server) tenantAndOwner(r *http.Request) (trade.TenantID, trade.OwnerID) {
	v := mux.Vars(r)
	return trade.TenantID(v["tenantId"]), trade.OwnerID(v["ownerId"])
}

type inventoryItem struct {
	ID           string   `json:"id"`
	CollectionID string   `json:"collectionId,omitempty"`
	ValueHint    *float64 `json:"valueHint,omitempty"`
}

type submitInventoryRequest struct {
	Items []inventoryItem `json:"items"`
}

type rejectedItemResponse struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

type submitResultResponse struct {
	Ok                  bool                    `json:"ok"`
	NewCyclesDiscovered int                     `json:"newCyclesDiscovered"`
	Rejected            []rejectedItemResponse  `json:"rejected,omitempty"`
}

// handleSubmitInventory implements submitInventory: owner claims a batch
// of items, each applied independently so one conflict does not sink the
// whole batch.
func (s *Server) handleSubmitInventory(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	var req submitInventoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]trade.Item, len(req.Items))
	for i, it := range req.Items {
		item := trade.Item{ID: trade.ItemID(it.ID), CollectionID: trade.CollectionID(it.CollectionID)}
		if it.ValueHint != nil {
			v := *it.ValueHint
			item.ValueHint = &v
		}
		items[i] = item
	}
	result, err := bundle.Coordinator.SubmitInventory(r.Context(), ownerID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRescan(string(tenantID), result.NewCyclesDiscovered, 0, false, 0)
	}
	writeJSON(w, http.StatusOK, toSubmitResultResponse(result))
}

// handleRemoveInventory implements removeInventory.
func (s *Server) handleRemoveInventory(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]trade.ItemID, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		ids[i] = trade.ItemID(id)
	}
	ok, err := bundle.Coordinator.RemoveInventory(r.Context(), ownerID, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

// handleSubmitWants implements submitWants.
func (s *Server) handleSubmitWants(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]trade.ItemID, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		ids[i] = trade.ItemID(id)
	}
	result, err := bundle.Coordinator.SubmitWants(r.Context(), ownerID, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRescan(string(tenantID), result.NewCyclesDiscovered, 0, false, 0)
	}
	writeJSON(w, http.StatusOK, toSubmitResultResponse(result))
}

// handleRemoveWants implements the undo of submitWants.
func (s *Server) handleRemoveWants(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]trade.ItemID, len(req.ItemIDs))
	for i, id := range req.ItemIDs {
		ids[i] = trade.ItemID(id)
	}
	ok, err := bundle.Coordinator.RemoveWants(r.Context(), ownerID, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

// handleSubmitCollectionWant implements submitCollectionWant.
func (s *Server) handleSubmitCollectionWant(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	collectionID := trade.CollectionID(mux.Vars(r)["collectionId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := bundle.Coordinator.SubmitCollectionWant(r.Context(), ownerID, collectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitResultResponse(result))
}

// handleRemoveCollectionWant implements removeCollectionWant.
func (s *Server) handleRemoveCollectionWant(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	collectionID := trade.CollectionID(mux.Vars(r)["collectionId"])
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	ok, err := bundle.Coordinator.RemoveCollectionWant(r.Context(), ownerID, collectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
}

type recordRejectionRequest struct {
	RejectedOwnerID string `json:"rejectedOwnerId,omitempty"`
	CycleSignature  string `json:"cycleSignature,omitempty"`
}

// handleRecordRejection implements recordRejection: either a counterparty
// rejection or a specific cycle rejection, depending on which field is set.
func (s *Server) handleRecordRejection(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	var req recordRejectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	switch {
	case req.RejectedOwnerID != "":
		ok, err := bundle.Coordinator.RejectOwner(r.Context(), ownerID, trade.OwnerID(req.RejectedOwnerID))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
	case req.CycleSignature != "":
		sig, err := decodeSignature(req.CycleSignature)
		if err != nil {
			writeError(w, err)
			return
		}
		ok, err := bundle.Coordinator.RejectCycle(r.Context(), ownerID, sig)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": ok})
	default:
		writeError(w, engineerrors.InvalidArgument("one of rejectedOwnerId or cycleSignature is required"))
	}
}

// handleRescan implements the explicit on-demand enumeration endpoint.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	tenantID, ownerID := s.tenantAndOwner(r)
	bundle, err := s.app.Get(tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := bundle.Coordinator.Rescan(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmitResultResponse(result))
}

func decodeSignature(s string) (trade.Signature, error) {
	var sig trade.Signature
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(sig) {
		return sig, engineerrors.InvalidArgument("malformed cycle signature")
	}
	copy(sig[:], raw)
	return sig, nil
}
