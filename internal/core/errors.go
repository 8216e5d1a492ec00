package core

// errors.go defines the error taxonomy shared by every layer.
//
// Each class has its own type so callers branch with errors.As rather than
// string matching:
//   - ValidationError: bad input, surfaced immediately, never retried
//   - NotFoundError: unknown supplier or SKU, terminal
//   - TransientError: supplier timeout/5xx or cache outage, retryable
//   - SignatureError: webhook signature mismatch, never retried
//   - ErrTooManySyncs: every sync slot busy, retry after a short delay
//
// StatusCode maps the taxonomy onto HTTP status codes for the web layer.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTooManySyncs is returned when every sync slot stays occupied for the
// whole wait.
var ErrTooManySyncs = errors.New("too many concurrent syncs, please try again later")

// ValidationError represents a single validation failure for a field.
type ValidationError struct {
	Field   string // Field name, empty for record-level problems
	Value   string // The offending value, if any
	Message string // Human-readable message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors groups several field failures into one error.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError is returned when a supplier, SKU or run does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TransientError wraps an integration failure that may succeed on retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// SignatureError is returned when a webhook signature does not verify.
type SignatureError struct {
	SupplierID string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid webhook signature for supplier %s", e.SupplierID)
}

// Transient wraps err as a TransientError. Returns nil if err is nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsRetryable reports whether err is worth retrying. Validation, not-found
// and signature failures never are; cancellation of the caller's context
// is not either.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ve ValidationError
	var ves ValidationErrors
	var nf *NotFoundError
	var se *SignatureError
	switch {
	case errors.As(err, &ve), errors.As(err, &ves), errors.As(err, &nf), errors.As(err, &se):
		return false
	}
	return true
}

// StatusCode returns the HTTP status code for err.
func StatusCode(err error) int {
	var ve ValidationError
	var ves ValidationErrors
	var nf *NotFoundError
	var se *SignatureError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &ves):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManySyncs):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
