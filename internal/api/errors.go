package api

import (
	"errors"
	"net/http"

	"github.com/macrofit/coach-api/internal/service"
	"github.com/macrofit/coach-api/internal/service/auth"
	"github.com/macrofit/coach-api/internal/store"
	"github.com/macrofit/coach-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes
// without leaking internal error types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrDuplicateID):
		return http.StatusConflict

	case errors.Is(err, service.ErrUnknownView),
		errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrNoPlan),
		errors.Is(err, task.ErrInvalidKind):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrRegistryClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for
// the error.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid or missing token"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, task.ErrDuplicateID):
		return "Operation already started"
	case errors.Is(err, service.ErrUnknownView):
		return "Unknown view"
	case errors.Is(err, service.ErrNoPlan):
		return "No workout plan exists yet"
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, task.ErrInvalidKind):
		return "Invalid request"
	case errors.Is(err, task.ErrRegistryClosed):
		return "Server is shutting down"
	default:
		return "An internal error occurred"
	}
}
