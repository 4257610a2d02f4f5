package common

import (
	"errors"
	"net/http"
)

// Error codes partition failures by where in the settlement flow they occur.
// Codes never reach the mobile client; they drive logging and metrics.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeValidation      = "VALIDATION_ERROR"
	CodePrecondition    = "PRECONDITION_FAILED"
	CodeProcessor       = "PROCESSOR_ERROR"
	CodePartialFailure  = "PARTIAL_FAILURE"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError builds a client-error AppError for malformed input.
func ValidationError(message string) *AppError {
	return NewAppError(CodeValidation, message, http.StatusBadRequest, nil)
}

// PreconditionError builds an AppError for requests that are well-formed but
// cannot proceed given the current state of the store.
func PreconditionError(message string) *AppError {
	return NewAppError(CodePrecondition, message, http.StatusBadRequest, nil)
}

// AsAppError extracts the AppError from err, or wraps err as an internal one.
func AsAppError(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return NewAppError(CodeInternal, "internal error", http.StatusInternalServerError, err)
}
