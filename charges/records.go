package charges

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

// =============================================================================
// COST SOURCES
// =============================================================================

// Expense is a building-level cost.
type Expense struct {
	ID         string
	BuildingID lease.BuildingID
	Label      string
	Amount     decimal.Decimal
	Date       generic.Date    // incurred date
	Service    *generic.Period // explicit service period, optional
	KeyID      *KeyID
}

// MeterReading is a local-level consumption record.
type MeterReading struct {
	ID            string
	LocalID       lease.LocalID
	KeyID         KeyID
	Label         string
	PreviousIndex decimal.Decimal
	NewIndex      decimal.Decimal
	ReadingDate   generic.Date
	ServiceStart  *generic.Date // previous reading date, optional
}

// Quantity is NewIndex - PreviousIndex.
func (r MeterReading) Quantity() decimal.Decimal { return r.NewIndex.Sub(r.PreviousIndex) }

// Window returns [ServiceStart, ReadingDate], or false without a service start.
func (r MeterReading) Window() (generic.Period, bool) {
	if r.ServiceStart == nil {
		return generic.Period{}, false
	}
	return generic.Period{Start: *r.ServiceStart, End: r.ReadingDate}, true
}

// Adjustment is a signed amount added verbatim to a lease's regularization.
type Adjustment struct {
	ID      string
	LeaseID lease.ID
	Date    generic.Date
	Label   string
	Amount  decimal.Decimal
}

// =============================================================================
// REGULARIZATION RECORD - Append-only history of settlement runs
// =============================================================================

// Record is the immutable result of one settlement run. Only the payment
// tracking fields change after creation.
type Record struct {
	ID              string
	LeaseID         lease.ID
	PeriodStart     generic.Date
	PeriodEnd       generic.Date
	RealTotal       decimal.Decimal
	ProvisionsTotal decimal.Decimal
	Balance         decimal.Decimal // positive: tenant owes; negative: refund
	CreatedAt       time.Time
	Paid            bool
	PaidOn          *generic.Date
	Notes           string
}

// TenantOwes reports a positive balance.
func (r Record) TenantOwes() bool { return r.Balance.IsPositive() }

// ValidatePayment checks the payment tracking fields: a paid-on date needs
// Paid, and cannot precede the record's creation day.
func (r Record) ValidatePayment() error {
	if r.PaidOn == nil {
		return nil
	}
	if !r.Paid {
		return &PaymentError{RecordID: r.ID, Reason: "a payment date requires the record to be marked paid"}
	}
	if r.PaidOn.Before(generic.DateOf(r.CreatedAt)) {
		return &PaymentError{RecordID: r.ID, Reason: "payment date is before the regularization was created"}
	}
	return nil
}

// MarkPaid returns a copy of r paid on the given date.
func (r Record) MarkPaid(on generic.Date, notes string) (Record, error) {
	r.Paid = true
	r.PaidOn = &on
	if notes != "" {
		r.Notes = notes
	}
	if err := r.ValidatePayment(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// PaymentError reports inconsistent payment tracking.
type PaymentError struct {
	RecordID string
	Reason   string
}

func (e *PaymentError) Error() string {
	return "regularization " + e.RecordID + ": " + e.Reason
}

func (e *PaymentError) Unwrap() error {
	return generic.ErrInvalidPayment
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// RecordStore persists regularization records. Append-only: records are
// never updated except for payment tracking.
type RecordStore interface {
	AppendRecord(ctx context.Context, r Record) error
	Records(ctx context.Context, leaseID lease.ID) ([]Record, error)
	Record(ctx context.Context, id string) (Record, error)
	SavePayment(ctx context.Context, r Record) error
}

// Source supplies the reference data of a settlement run.
type Source interface {
	Keys(ctx context.Context, building lease.BuildingID) ([]Key, error)
	Shares(ctx context.Context, building lease.BuildingID) ([]Share, error)
	Expenses(ctx context.Context, building lease.BuildingID, within generic.Period) ([]Expense, error)
	Readings(ctx context.Context, local lease.LocalID, within generic.Period) ([]MeterReading, error)
	Adjustments(ctx context.Context, leaseID lease.ID, within generic.Period) ([]Adjustment, error)
}
