package lease

import (
	"fmt"
	"strings"

	"github.com/warp/lease-engine/generic"
)

// TariffNotFoundError means no tariff period covers a date a calculation needs.
type TariffNotFoundError struct {
	LeaseID ID
	Date    generic.Date
}

func (e *TariffNotFoundError) Error() string {
	return fmt.Sprintf("no tariff for lease %s on %s", e.LeaseID, e.Date)
}

func (e *TariffNotFoundError) Unwrap() error {
	return generic.ErrTariffNotFound
}

// OverlapViolation reports a candidate tariff that intersects an existing one.
type OverlapViolation struct {
	LeaseID   ID
	Candidate TariffPeriod
	Existing  TariffPeriod
}

func (e *OverlapViolation) Error() string {
	return fmt.Sprintf("lease %s: tariff %s overlaps tariff %s %s",
		e.LeaseID, e.Candidate.Span(), e.Existing.ID, e.Existing.Span())
}

func (e *OverlapViolation) Unwrap() error {
	return generic.ErrOverlap
}

// InvalidTariffError reports a candidate that is malformed on its own.
type InvalidTariffError struct {
	LeaseID   ID
	Candidate TariffPeriod
	Reason    string
}

func (e *InvalidTariffError) Error() string {
	return fmt.Sprintf("lease %s: invalid tariff %s: %s", e.LeaseID, e.Candidate.Span(), e.Reason)
}

func (e *InvalidTariffError) Unwrap() error {
	return generic.ErrInvalidPeriod
}

// Gap is a run of days not covered by any tariff.
type Gap struct {
	Start generic.Date
	End   generic.Date
	Days  int
}

func (g Gap) String() string {
	return fmt.Sprintf("%s..%s (%d days)", g.Start, g.End, g.Days)
}

// ContinuityWarning is advisory: a lease whose tariffs leave holes. It is
// returned as a value by audits, never as a calculation failure.
type ContinuityWarning struct {
	LeaseID  ID
	Gaps     []Gap
	NoTariff bool
}

func (w *ContinuityWarning) Error() string {
	if w.NoTariff {
		return fmt.Sprintf("lease %s has no tariff", w.LeaseID)
	}
	parts := make([]string, len(w.Gaps))
	for i, g := range w.Gaps {
		parts[i] = g.String()
	}
	return fmt.Sprintf("lease %s has %d tariff gap(s): %s", w.LeaseID, len(w.Gaps), strings.Join(parts, ", "))
}
