// Package errors provides unified error handling for the matching engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, caller-facing error identifier (spec.md 6).
type Code string

const (
	CodeUnknownTenant   Code = "UNKNOWN_TENANT"
	CodeTenantExists    Code = "TENANT_EXISTS"
	CodeOwnershipConflict Code = "OWNERSHIP_CONFLICT"
	CodeSelfWantRejected  Code = "SELF_WANT_REJECTED"
	CodeUnknownItem       Code = "UNKNOWN_ITEM"
	CodeBudgetExceeded    Code = "BUDGET_EXCEEDED"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInternal          Code = "INTERNAL"
)

// EngineError is a structured error with a stable code, human-readable
// message, HTTP status and optional details — no stack traces ever cross
// the engine boundary (spec.md 7).
type EngineError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair of diagnostic context.
func (e *EngineError) WithDetails(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an EngineError with no wrapped cause.
func New(code Code, message string, httpStatus int) *EngineError {
	return &EngineError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an EngineError wrapping an existing error.
func Wrap(code Code, message string, httpStatus int, err error) *EngineError {
	return &EngineError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// UnknownTenant builds the error returned when a tenant id is not registered.
func UnknownTenant(tenantID string) *EngineError {
	return New(CodeUnknownTenant, "unknown tenant", http.StatusNotFound).WithDetails("tenantId", tenantID)
}

// TenantExists builds the error returned when create() targets an existing tenant.
func TenantExists(tenantID string) *EngineError {
	return New(CodeTenantExists, "tenant already exists", http.StatusConflict).WithDetails("tenantId", tenantID)
}

// OwnershipConflict builds the error returned when an item is claimed by two owners.
func OwnershipConflict(itemID, claimedBy, owner string) *EngineError {
	return New(CodeOwnershipConflict, "item already owned by a different owner", http.StatusConflict).
		WithDetails("itemId", itemID).
		WithDetails("currentOwner", owner).
		WithDetails("attemptedBy", claimedBy)
}

// SelfWantRejected builds the error returned when an owner wants an item it already owns.
func SelfWantRejected(ownerID, itemID string) *EngineError {
	return New(CodeSelfWantRejected, "an owner cannot want an item it already owns", http.StatusBadRequest).
		WithDetails("ownerId", ownerID).
		WithDetails("itemId", itemID)
}

// UnknownItem builds the error returned when an operation references an untracked item.
func UnknownItem(itemID string) *EngineError {
	return New(CodeUnknownItem, "unknown item", http.StatusNotFound).WithDetails("itemId", itemID)
}

// InvalidArgument builds a generic validation error.
func InvalidArgument(reason string) *EngineError {
	return New(CodeInvalidArgument, reason, http.StatusBadRequest)
}

// Internal wraps an unexpected internal fault.
func Internal(message string, err error) *EngineError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

// IsEngineError reports whether err carries an *EngineError in its chain.
func IsEngineError(err error) bool {
	var e *EngineError
	return errors.As(err, &e)
}

// As extracts an *EngineError from err's chain, if present.
func As(err error) *EngineError {
	var e *EngineError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HTTPStatus returns the HTTP status code to report for err.
func HTTPStatus(err error) int {
	if e := As(err); e != nil {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf returns the stable code to report for err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.Code
	}
	return CodeInternal
}
