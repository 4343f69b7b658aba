package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrVersionConflict = errors.New("version conflict")
	ErrTransientStore  = errors.New("store temporarily unavailable")
	ErrUnmappedPrice   = errors.New("unmapped billing price")
)

// AppError represents an application error with HTTP status
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, message, ErrForbidden)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, "internal server error", err)
}

// TransientStore marks a durable-store failure as retryable. API surfaces
// map it to 503 so callers can distinguish it from a definitive rejection.
func TransientStore(err error) *AppError {
	return NewAppError(http.StatusServiceUnavailable, "store temporarily unavailable", fmt.Errorf("%w: %v", ErrTransientStore, err))
}

// KeyLimitReachedError is returned when provisioning would exceed the
// account's MaxKeys. It carries the numbers the dashboard needs.
type KeyLimitReachedError struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

func (e *KeyLimitReachedError) Error() string {
	return fmt.Sprintf("api key limit reached (%d/%d)", e.Used, e.Max)
}

// QuotaExceededError is returned when the quota gate rejects a metered
// execution. Always surfaced as HTTP 429.
type QuotaExceededError struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly quota exceeded (%d/%d)", e.Used, e.Limit)
}
