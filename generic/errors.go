/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Ledger errors - Entry persistence failures
  2. Configuration errors - Unknown periods, frequencies, policies
  3. Invariant violations - Programming errors that must fail loudly

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
        return nil // already booked
    }

SEE ALSO:
  - ledger.go: Uses these errors
  - ledger/ledger.go: Panics with InvariantError on stock corruption
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when an entry with the same
	// idempotency key already exists. This is expected behavior for settlements
	// that may be triggered more than once.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrEntityNotFound is returned when a referenced entity doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidPeriod is returned for an unknown expense period.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrUnknownFrequency is returned for an unknown settlement frequency.
	ErrUnknownFrequency = errors.New("unknown settlement frequency")

	// ErrUnknownTiming is returned for an unknown cash timing policy.
	ErrUnknownTiming = errors.New("unknown timing policy")

	// ErrInvariantViolation marks programming errors: negative stock,
	// broken conservation of units.
	ErrInvariantViolation = errors.New("invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvariantError names the invariant that broke and the subject it broke on.
// It is raised with panic, never returned through normal control flow.
type InvariantError struct {
	Invariant string // e.g. "non_negative_stock", "conservation"
	Subject   string // material or operation ID
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated for %s: %s", e.Invariant, e.Subject, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownFrequency) ||
		errors.Is(err, ErrUnknownTiming)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
