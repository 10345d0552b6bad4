// Package errors defines the typed failures repositories surface to their
// callers and the mapping of those failures onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an application error.
type ErrorType string

const (
	// ErrorTypeValidation is malformed, missing, or duplicate input.
	// Caller error; never retried by the engine.
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeNotFound is a referenced entity being absent.
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeConflict is a uniqueness violation on creation. The message
	// names the offending key.
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnavailable is a transient backend failure. Idempotent reads
	// and deletes are safe to retry; creates are not, blindly.
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// ErrorTypeInternal is anything else: logged and surfaced opaquely.
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError is an application-specific error carrying its category, an
// HTTP status for the REST layer, and optional structured details.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithDetail attaches a structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error for the named entity.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewUnavailableError creates a transient backend failure error.
func NewUnavailableError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInternalError creates an opaque internal error.
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return isType(err, ErrorTypeConflict) }

// IsUnavailable reports whether err is a transient backend failure.
func IsUnavailable(err error) bool { return isType(err, ErrorTypeUnavailable) }
