/*
Package loan computes amortization schedules and outstanding capital of
building loans.

KEY CONCEPTS:
  - Loan: principal, nominal annual rate, term, start, type, insurance
  - Installment: one monthly payment split into capital/interest/insurance
  - CRD ("capital restant dû"): outstanding principal at a date

Every computation is state-free over a Loan value. CapitalRemainingAt uses
the closed form and never materializes the schedule.

SEE ALSO:
  - scheduler.go: replace-all persistence of a regenerated schedule
*/
package loan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

// ID identifies a loan.
type ID string

// Type is the repayment profile.
type Type string

const (
	// Amortizing repays capital with every constant installment.
	Amortizing Type = "AMORTIZING"
	// InterestOnly pays interest monthly and the full principal at term.
	InterestOnly Type = "INTEREST_ONLY"
)

// internalPlaces bounds the precision of intermediate values so repeated
// multiplications don't grow without limit.
const internalPlaces int32 = 20

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Loan is a building loan.
type Loan struct {
	ID         ID
	BuildingID lease.BuildingID
	Label      string
	Principal  decimal.Decimal
	Rate       decimal.Decimal // annual nominal rate, percent
	Term       int             // months
	Start      generic.Date
	Type       Type
	Insurance  decimal.Decimal // flat monthly premium
}

// Validate rejects terms that cannot be amortized.
func (l Loan) Validate() error {
	switch {
	case l.Term <= 0:
		return fmt.Errorf("loan %s: term must be positive, got %d: %w", l.ID, l.Term, generic.ErrInvalidLoan)
	case !l.Principal.IsPositive():
		return fmt.Errorf("loan %s: principal must be positive: %w", l.ID, generic.ErrInvalidLoan)
	case l.Rate.IsNegative():
		return fmt.Errorf("loan %s: rate must not be negative: %w", l.ID, generic.ErrInvalidLoan)
	case l.Type != Amortizing && l.Type != InterestOnly:
		return fmt.Errorf("loan %s: unknown type %q: %w", l.ID, l.Type, generic.ErrInvalidLoan)
	}
	return nil
}

// MonthlyRate is rate / 100 / 12.
func (l Loan) MonthlyRate() decimal.Decimal {
	return l.Rate.Div(hundred).Div(twelve)
}

// TermEnd is Start + Term months, the date of the last installment.
func (l Loan) TermEnd() generic.Date { return l.Start.AddMonths(l.Term) }

// MonthlyPayment returns the installment excluding insurance: the annuity
// P*i*(1+i)^n / ((1+i)^n - 1) for amortizing loans (P/n at zero rate), and
// P*i for interest-only loans.
func MonthlyPayment(l Loan) decimal.Decimal {
	if l.Term <= 0 {
		return decimal.Zero
	}
	i := l.MonthlyRate()
	if l.Type == InterestOnly {
		return l.Principal.Mul(i)
	}
	if i.IsZero() {
		return l.Principal.Div(decimal.NewFromInt(int64(l.Term)))
	}
	factor := compound(i, l.Term)
	return l.Principal.Mul(i).Mul(factor).Div(factor.Sub(one))
}

// MonthlyPaymentWithInsurance adds the flat insurance premium.
func MonthlyPaymentWithInsurance(l Loan) decimal.Decimal {
	return MonthlyPayment(l).Add(l.Insurance)
}

// CapitalRemainingAt returns the outstanding principal at date in closed form.
// Before the start it is the full principal; from the term end on it is zero.
func CapitalRemainingAt(l Loan, date generic.Date) decimal.Decimal {
	if date.Before(l.Start) {
		return l.Principal
	}
	if l.Term <= 0 || !date.Before(l.TermEnd()) {
		return decimal.Zero
	}
	if l.Type == InterestOnly {
		return l.Principal
	}

	m := generic.MonthsBetween(l.Start, date)
	i := l.MonthlyRate()
	var crd decimal.Decimal
	if i.IsZero() {
		crd = l.Principal.Sub(l.Principal.Mul(decimal.NewFromInt(int64(m))).Div(decimal.NewFromInt(int64(l.Term))))
	} else {
		factor := compound(i, m)
		crd = l.Principal.Mul(factor).Sub(MonthlyPayment(l).Mul(factor.Sub(one)).Div(i))
	}
	if crd.IsNegative() {
		return decimal.Zero
	}
	return crd
}

// compound returns (1+i)^n by squaring, rounded at internalPlaces.
func compound(i decimal.Decimal, n int) decimal.Decimal {
	base := one.Add(i)
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(internalPlaces)
		}
		base = base.Mul(base).Round(internalPlaces)
		n >>= 1
	}
	return result
}

// =============================================================================
// SCHEDULE
// =============================================================================

// Installment is one monthly payment of a loan.
type Installment struct {
	LoanID           ID
	Number           int
	Date             generic.Date
	Capital          decimal.Decimal
	Interest         decimal.Decimal
	Insurance        decimal.Decimal
	CapitalRemaining decimal.Decimal // after this installment
	Paid             bool
	PaidOn           *generic.Date
}

// Total is capital + interest + insurance.
func (in Installment) Total() decimal.Decimal {
	return in.Capital.Add(in.Interest).Add(in.Insurance)
}

// GenerateSchedule returns the Term installments of the loan, dated
// Start + k months. Amounts are rounded to cents; capital portions are the
// differences of consecutive rounded balances, so they sum exactly to the
// principal and the last installment absorbs any drift.
func GenerateSchedule(l Loan) ([]Installment, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	i := l.MonthlyRate()
	payment := MonthlyPayment(l)
	insurance := generic.RoundMoney(l.Insurance)

	schedule := make([]Installment, 0, l.Term)
	remaining := l.Principal
	prevRounded := generic.RoundMoney(l.Principal)
	for k := 1; k <= l.Term; k++ {
		interest := remaining.Mul(i).Round(internalPlaces)
		var capital decimal.Decimal
		switch l.Type {
		case InterestOnly:
			capital = decimal.Zero
			if k == l.Term {
				capital = remaining
			}
		default:
			capital = payment.Sub(interest)
			if k == l.Term {
				capital = remaining
			}
		}
		remaining = remaining.Sub(capital)
		if k == l.Term {
			remaining = decimal.Zero
		}

		remRounded := generic.RoundMoney(remaining)
		schedule = append(schedule, Installment{
			LoanID:           l.ID,
			Number:           k,
			Date:             l.Start.AddMonths(k),
			Capital:          prevRounded.Sub(remRounded),
			Interest:         generic.RoundMoney(interest),
			Insurance:        insurance,
			CapitalRemaining: remRounded,
		})
		prevRounded = remRounded
	}
	return schedule, nil
}

// YearlyCost sums the interest and insurance of the installments falling in
// a calendar year (input of the annual fiscal statement).
func YearlyCost(schedule []Installment, year int) (interest, insurance decimal.Decimal) {
	interest, insurance = decimal.Zero, decimal.Zero
	for _, in := range schedule {
		if in.Date.Year() != year {
			continue
		}
		interest = interest.Add(in.Interest)
		insurance = insurance.Add(in.Insurance)
	}
	return interest, insurance
}

// MarkPaid records the payment of an installment.
func (in Installment) MarkPaid(on generic.Date) Installment {
	in.Paid = true
	in.PaidOn = &on
	return in
}
