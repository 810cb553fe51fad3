// Package apperrors defines the error taxonomy shared by the chat core,
// its REST handlers, and the real-time gateway.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks caller-fixable input problems (shape, length).
	ErrValidation = errors.New("validation error")
	// ErrPermissionDenied marks a requester that is not a member, or not an admin.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound marks a missing group, membership, or referenced entity.
	ErrNotFound = errors.New("not found")
	// ErrProtocolViolation marks a malformed real-time frame or an invalid credential.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrConflict marks a uniqueness race surfaced by storage.
	ErrConflict = errors.New("conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func PermissionDenied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func ProtocolViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error onto the status code REST callers receive.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrProtocolViolation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine-readable error code used in REST bodies and
// websocket error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}

// PublicMessage hides internal error detail from clients.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
