/*
errors.go - Centralized error taxonomy for the integrity engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes without inspecting strings.

ERROR CATEGORIES:
  1. Validation errors  - structural/field violations, all reported at once
  2. Conflict errors    - uniqueness or optimistic-concurrency mismatch
  3. Infrastructure     - counter store or gateway unavailable

PROPAGATION POLICY:
  The engine never partially commits: either the whole
  validate -> derive -> check -> persist pipeline succeeds, or nothing is
  written and one of these errors is returned. Nothing is swallowed.

USAGE:
  if errors.Is(err, ledger.ErrConflict) {
      // re-read the document and retry
  }
  var ve *ledger.ValidationError
  if errors.As(err, &ve) {
      // ve.Violations lists every failed field
  }
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrConflict covers uniqueness violations and optimistic-lock mismatches.
	// The caller should re-read the document and retry.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a document or referenced document is absent.
	ErrNotFound = errors.New("document not found")

	// ErrSequenceUnavailable means the numbering counter store is unreachable.
	// Callers must NOT fall back to a count-based guess.
	ErrSequenceUnavailable = errors.New("sequence counter unavailable")

	// ErrGatewayTimeout means a persistence call exceeded its deadline.
	// Safe to retry the whole operation: no partial write occurred.
	ErrGatewayTimeout = errors.New("persistence gateway timeout")

	// ErrInvalidAmount is returned by Money construction on negative or
	// over-precise input.
	ErrInvalidAmount = errors.New("invalid monetary amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldViolation describes a single failed validation rule.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries EVERY violated field, not just the first, so API
// callers can report all problems in one response.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, rule, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Rule: rule, Message: message})
}

func newViolation(field, rule, message string) *ValidationError {
	ve := &ValidationError{}
	ve.add(field, rule, message)
	return ve
}

// ConflictError reports a uniqueness violation or a version mismatch.
type ConflictError struct {
	Reason string // "version_mismatch", "duplicate_email", ...
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict (%s): %s", e.Reason, e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on a full retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrGatewayTimeout)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
