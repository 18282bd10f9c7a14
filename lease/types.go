/*
Package lease implements the lease side of the engine: versioned tariffs,
provision proration, rent revision and billing amounts.

KEY CONCEPTS:
  - Lease: a rented local with an occupancy window and billing settings
  - TariffPeriod: a date-bounded (rent, charges provision, taxes) triple
  - Timeline: the ordered, non-overlapping tariff periods of one lease
  - ProvisionCalculator: month-sliced provision proration
  - Revise / TariffChange: index-based revision and its atomic application

INVARIANTS (enforced by Validate on every insert):
  1. A tariff's end, if set, is strictly after its start
  2. At most one open tariff per lease
  3. No two tariffs of a lease overlap (open end = +∞)
  4. No tariff starts before its lease

SEE ALSO:
  - timeline.go: lookup, validation, gap audit
  - provision.go: ProvisionCalculator
  - revision.go: RentRevisionCalculator and the TariffChange command
  - billing.go: rent proration, amounts due, final settlement
*/
package lease

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
)

// Typed IDs prevent mixing leases, locals and buildings.
type (
	ID         string
	TariffID   string
	LocalID    string
	BuildingID string
)

// ChargeMode says how charges are billed.
type ChargeMode string

const (
	// ChargesProvision: monthly advances reconciled by a regularization.
	ChargesProvision ChargeMode = "PROVISION"
	// ChargesFlat: fixed charges, never reconciled.
	ChargesFlat ChargeMode = "FORFAIT"
)

// Frequency is the rent payment frequency.
type Frequency string

const (
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
)

// DefaultVATRate is applied when a VAT-subject lease has no explicit rate.
var DefaultVATRate = decimal.NewFromInt(20)

// Lease identifies a rented unit and its occupancy window.
type Lease struct {
	ID         ID
	LocalID    LocalID
	BuildingID BuildingID
	Start      generic.Date
	End        *generic.Date // nil while the lease runs
	ChargeMode ChargeMode
	Frequency  Frequency
	SubjectVAT bool
	VATRate    decimal.Decimal // percent
	Deposit    decimal.Decimal
}

// Occupancy returns the lease window with an open end mapped to MaxDate.
func (l Lease) Occupancy() generic.Period {
	return generic.OpenPeriod(l.Start, l.End)
}

// OccupancyWithin clips [start, end] to the lease window.
func (l Lease) OccupancyWithin(start, end generic.Date) (generic.Period, bool) {
	return generic.Intersect(generic.Period{Start: start, End: end}, l.Occupancy())
}

// EffectiveVATRate returns the VAT rate, or zero when the lease is not subject.
func (l Lease) EffectiveVATRate() decimal.Decimal {
	if !l.SubjectVAT {
		return decimal.Zero
	}
	if l.VATRate.IsZero() {
		return DefaultVATRate
	}
	return l.VATRate
}

// TariffPeriod is one version of a lease's pricing.
type TariffPeriod struct {
	ID          TariffID
	LeaseID     ID
	Start       generic.Date
	End         *generic.Date // nil = still active
	Rent        decimal.Decimal
	Charges     decimal.Decimal // monthly charges provision
	Taxes       decimal.Decimal
	Index       *decimal.Decimal // reference index (IRL/ILC) value
	IndexPeriod string           // e.g. "T2 2023"
	Reason      string
	CreatedAt   time.Time
}

// IsOpen reports whether the period has no end date.
func (t TariffPeriod) IsOpen() bool { return t.End == nil }

// Span returns the validity interval, open end mapped to MaxDate.
func (t TariffPeriod) Span() generic.Period { return generic.OpenPeriod(t.Start, t.End) }

// Covers reports whether date falls in the validity interval.
func (t TariffPeriod) Covers(date generic.Date) bool { return t.Span().Contains(date) }

// PeriodTotal is rent + charges + taxes for one billing period.
func (t TariffPeriod) PeriodTotal() decimal.Decimal {
	return t.Rent.Add(t.Charges).Add(t.Taxes)
}
