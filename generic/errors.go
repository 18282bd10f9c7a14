/*
errors.go - Centralized error types for the lease engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Domain packages return structured errors that unwrap to these sentinels,
  so hosts classify failures with errors.Is without knowing the packages.

ERROR CATEGORIES:
  1. Calculation errors - a total would be wrong (missing tariff, missing index)
  2. Validation errors - a write would break an invariant (overlap, bad period)
  3. Configuration errors - reference data cannot serve a line (zero shares)
  4. Store errors - missing records, missing capabilities

PROPAGATION:
  Errors that make a financial total wrong abort the computation.
  Errors confined to one contributing line are logged and the line skipped.

USAGE:
    if errors.Is(err, generic.ErrTariffNotFound) {
        // create the missing tariff, then retry
    }

SEE ALSO:
  - lease/errors.go: TariffNotFoundError, OverlapViolation, ContinuityWarning
  - charges/regularization.go: skips lines on ConfigurationError
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
	// ErrTariffNotFound is returned when no tariff period covers a date that a
	// calculation needs. Never defaulted.
	ErrTariffNotFound = errors.New("tariff not found")

	// ErrOverlap is returned when a tariff period would overlap another period
	// of the same lease.
	ErrOverlap = errors.New("tariff periods overlap")

	// ErrConfiguration is returned when reference data cannot support a
	// computation (zero total shares, missing index, missing unit price).
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidLoan is returned for loans that cannot be amortized.
	ErrInvalidLoan = errors.New("invalid loan terms")

	// ErrInvalidPayment is returned when payment tracking fields are inconsistent.
	ErrInvalidPayment = errors.New("invalid payment tracking")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique record already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrStoreRequired is returned when an operation needs a store that was not configured.
	ErrStoreRequired = errors.New("operation requires a store")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigKind names the kind of configuration problem.
type ConfigKind string

const (
	KindDivisionByZero   ConfigKind = "division_by_zero"
	KindMissingKey       ConfigKind = "missing_key"
	KindUnknownKey       ConfigKind = "unknown_key"
	KindMissingUnitPrice ConfigKind = "missing_unit_price"
	KindMissingIndex     ConfigKind = "missing_index"
	KindInvalidIndex     ConfigKind = "invalid_index"
	KindDuplicateShare   ConfigKind = "duplicate_share"
)

// ConfigurationError identifies the kind of problem and the offending entity.
type ConfigurationError struct {
	Kind    ConfigKind
	Subject string // e.g. "key:heating", "lease:L1"
	Detail  string
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("configuration error (%s) on %s", e.Kind, e.Subject)
	}
	return fmt.Sprintf("configuration error (%s) on %s: %s", e.Kind, e.Subject, e.Detail)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NotFoundError names a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigKind reports whether err is a ConfigurationError of the given kind.
func IsConfigKind(err error, kind ConfigKind) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidLoan) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
