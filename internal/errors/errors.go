package errors

import "net/http"

// APIError is the structured error returned by every ledger-facing operation,
// so callers can render a message without leaking internals.
type APIError struct {
	Status   int    `json:"-"`
	Code     string `json:"code"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the original error
func (e *APIError) Unwrap() error {
	return e.Internal
}

func newError(status int, code, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// NewValidationError wraps a request-binding failure. Rejected synchronously,
// no side effects.
func NewValidationError(err error) *APIError {
	return newError(http.StatusUnprocessableEntity, "validation_error", "Invalid request payload", err)
}

func BadRequest(message string, err error) *APIError {
	return newError(http.StatusBadRequest, "bad_request", message, err)
}

func Unauthorized(message string, err error) *APIError {
	return newError(http.StatusUnauthorized, "unauthorized", message, err)
}

func NotFound(message string, err error) *APIError {
	return newError(http.StatusNotFound, "not_found", message, err)
}

// InvalidState marks an attempt to decide an already-decided change.
func InvalidState(message string, err error) *APIError {
	return newError(http.StatusConflict, "invalid_state", message, err)
}

func Internal(err error) *APIError {
	return newError(http.StatusInternalServerError, "internal_error", "Internal server error", err)
}
