/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses; nothing is silently
  swallowed - every failure path carries a typed reason a caller can
  display.

ERROR CATEGORIES:
  1. Validation errors - malformed upload rows (all-or-nothing per upload)
  2. Conflict errors   - upload/run collisions (retryable)
  3. Restriction errors - malformed restriction sets (isolated per customer)

USAGE:
  if errors.Is(err, allocation.ErrConflict) {
      // retry later
  }

SEE ALSO:
  - dataset/store.go: Produces validation and conflict errors
  - engine.go: Produces restriction errors
*/
package allocation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an uploaded record is malformed.
	// The upload ingests nothing.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an upload or run collides with an
	// in-flight allocation run. Safe to retry.
	ErrConflict = errors.New("allocation run in progress")

	// ErrInvalidRestriction is returned when a restriction set references
	// no valid dimension values. Fatal to that customer's allocation only.
	ErrInvalidRestriction = errors.New("invalid restriction set")

	// ErrNoDataset is returned when allocation is triggered before both
	// stock and orders have been uploaded.
	ErrNoDataset = errors.New("no dataset loaded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError pinpoints a malformed upload row.
type ValidationError struct {
	Row    int    // zero-based index into the uploaded records
	Field  string // which field failed
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ValidationErrors collects every bad row in one upload so the caller can
// report them all at once instead of fixing the spreadsheet row by row.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ErrValidation.Error()
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", e[0].Error(), len(e)-1)
	}
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidation
}

// ConflictError reports which operation collided with an active run.
type ConflictError struct {
	Op string // e.g. "upload_stock", "allocate"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: allocation run in progress, retry later", e.Op)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InvalidRestrictionError names the customer and dimension of a malformed
// restriction set.
type InvalidRestrictionError struct {
	CustomerID CustomerID
	Dimension  string // "quality", "origin", "variety", "supplier", "ggn"
}

func (e *InvalidRestrictionError) Error() string {
	return fmt.Sprintf("customer %s: restriction dimension %q has no valid values",
		e.CustomerID, e.Dimension)
}

func (e *InvalidRestrictionError) Unwrap() error {
	return ErrInvalidRestriction
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRestriction) ||
		errors.Is(err, ErrNoDataset)
}
