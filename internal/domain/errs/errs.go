// Package errs agrupa los tipos de error que comparten los módulos del core.
// Cada módulo envuelve estos sentinels con fmt.Errorf("%w: ...") y los handlers
// deciden el status HTTP con errors.Is.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrDependency   = errors.New("dependency error")
)

// Validation, NotFound, etc. devuelven el sentinel con un mensaje legible.
func Validation(msg string) error   { return fmt.Errorf("%w: %s", ErrValidation, msg) }
func NotFound(what string) error    { return fmt.Errorf("%w: %s", ErrNotFound, what) }
func Conflict(msg string) error     { return fmt.Errorf("%w: %s", ErrConflict, msg) }
func InvalidState(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidState, msg) }

// Dependency marca la falla de un colaborador externo (image store, geocoder).
func Dependency(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDependency, what, err)
}

// HTTPStatus mapea un error del core a su status HTTP.
// Lo desconocido es 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage evita filtrar detalles internos en los 500.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
