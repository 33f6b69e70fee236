// Package apperror provides structured error handling for the back-office
// core. All business errors use AppError so callers can distinguish the
// named outcomes ("nothing happened, retry freely" vs "an identifier was
// consumed") instead of a single generic failure.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Caller-supplied data failed precondition checks; no store interaction
	// occurred (400)
	CodeInvalidInput = "INVALID_INPUT"

	// A referenced entity does not exist (404)
	CodeNotFound = "NOT_FOUND"

	// The bounded retry budget for a sequence increment was exhausted under
	// concurrent load; no identifier was consumed (409)
	CodeAllocationContention = "ALLOCATION_CONTENTION"

	// An identifier was allocated but the aggregate write did not fully
	// commit; the identifier is permanently burned (500)
	CodePersistFailure = "PERSIST_FAILURE"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, sequence keys, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewInvalidInput creates a precondition-violation error (400).
// Always recoverable by correcting input; no writes were attempted.
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewAllocationContention reports an exhausted retry budget on a sequence
// counter. No identifier was consumed; the whole operation is safe to retry.
func NewAllocationContention(key string, attempts int) *AppError {
	return &AppError{
		Code:       CodeAllocationContention,
		Message:    "sequence counter is under heavy contention, retry the operation",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"sequence": key, "attempts": attempts},
	}
}

// NewPersistFailure reports an aggregate write that did not fully commit
// after its identifier was already allocated. The identifier will not be
// reused; resubmission consumes a fresh one.
func NewPersistFailure(entity string, id any) *AppError {
	return &AppError{
		Code:       CodePersistFailure,
		Message:    fmt.Sprintf("%s was not persisted, its identifier is burned", entity),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInvalidInput checks if error is CodeInvalidInput
func IsInvalidInput(err error) bool {
	return hasCode(err, CodeInvalidInput)
}

// IsAllocationContention checks if error is CodeAllocationContention
func IsAllocationContention(err error) bool {
	return hasCode(err, CodeAllocationContention)
}

// IsPersistFailure checks if error is CodePersistFailure
func IsPersistFailure(err error) bool {
	return hasCode(err, CodePersistFailure)
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
