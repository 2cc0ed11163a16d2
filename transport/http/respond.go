// Package http exposes every SPEC_FULL.md §6 coordinator/store operation as
// a JSON handler on top of gorilla/mux, mirroring infrastructure/httputil's
// WriteJSON/WriteErrorResponse envelope and infrastructure/middleware's
// logging/recovery/metrics middleware shapes, trimmed of the auth/mTLS
// surface that infrastructure/httputil bundles in (authentication is an
// explicit Non-goal here).
package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
)

// ErrorResponse is the stable JSON error envelope spec.md §6/§7 describe.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to the stable {code, message, details} envelope and
// status code via infrastructure/errors, defaulting unrecognized errors to
// INTERNAL/500 so no stack trace or Go error string ever crosses the
// boundary.
func writeError(w http.ResponseWriter, err error) {
	status := engineerrors.HTTPStatus(err)
	code := engineerrors.CodeOf(err)
	message := "internal error"
	var details interface{}
	if e := engineerrors.As(err); e != nil {
		message = e.Message
		if e.Details != nil {
			details = e.Details
		}
	}
	writeJSON(w, status, ErrorResponse{Code: string(code), Message: message, Details: details})
}

// decodeJSON decodes the request body into v, writing an INVALID_ARGUMENT
// response and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, engineerrors.InvalidArgument("malformed JSON body: "+err.Error()))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
