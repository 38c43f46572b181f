/*
errors.go - Centralized error types for the vacation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure carries a human-readable message suitable for display,
  and unwraps to a sentinel so callers can branch with errors.Is.

ERROR CATEGORIES:
  1. Validation errors - Bad input (missing reason, non-selectable date)
  2. Balance errors - Requested hours exceed what the balance allows
  3. Transition errors - Operation not allowed in the request's state
  4. Lookup errors - Unknown employee or request
  5. Permission errors - Non-admin attempting an admin-only action
  6. Store errors - Concurrency and idempotency conflicts

USAGE:
  if errors.Is(err, generic.ErrInsufficientBalance) {
      var ib *generic.InsufficientBalanceError
      errors.As(err, &ib)
  }

SEE ALSO:
  - ledger.go: Returns balance and store errors
  - timeoff/service.go: Returns validation, transition and permission errors
  - api/handlers.go: Maps errors to HTTP status codes
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
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrNotFound            = errors.New("not found")
	ErrPermission          = errors.New("permission denied")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned when a compare-and-swap on a
	// balance record finds a newer version.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrLedgerInvariant is returned when a movement would leave a bucket negative.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Free       Amount
	Requested  Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %s hours requestable, %s hours requested",
		e.Free.Value, e.Requested.Value)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidTransitionError reports an operation the request's state forbids.
type InvalidTransitionError struct {
	RequestID RequestID
	Action    string
	Message   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s: %s", e.Action, e.RequestID, e.Message)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError reports an unknown employee, request or holiday.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PermissionError reports an action the actor is not allowed to perform.
type PermissionError struct {
	ActorID string
	Action  string
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s may not %s: %s", e.ActorID, e.Action, e.Message)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPermission)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
