// Package apperrors holds the error kinds shared by the store, the diagnosis
// pipeline and the HTTP layer.
package apperrors

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a patient, hospital, disease episode or
	// treatment plan identifier has no matching row.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers malformed input: missing intake fields, bad
	// identifiers and feature vectors of the wrong width.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a write collides with a unique constraint.
	ErrConflict = errors.New("conflict")

	// ErrUpstreamUnavailable wraps OCR, LLM and object storage failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrTransaction marks a store write that was rolled back.
	ErrTransaction = errors.New("transaction failed")
)

func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

// Upstream tags err as an upstream failure while keeping its message.
func Upstream(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(ErrUpstreamUnavailable, "%s: %v", message, err)
}

// Transaction tags err as a rolled back store write unless it already
// carries a more specific kind.
func Transaction(err error, message string) error {
	if err == nil {
		return nil
	}
	if IsKnown(err) {
		return err
	}
	return errors.Wrapf(ErrTransaction, "%s: %v", message, err)
}

// IsKnown reports whether err already carries one of the kinds above.
func IsKnown(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrConflict, ErrUpstreamUnavailable, ErrTransaction} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
