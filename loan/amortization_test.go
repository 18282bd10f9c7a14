package loan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/loan"
	"github.com/warp/lease-engine/store/memory"
)

func day(s string) generic.Date { return generic.MustDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mortgage is a 200k, 3%, 20-year amortizing loan starting 2020-01-01.
func mortgage() loan.Loan {
	return loan.Loan{
		ID:         "loan-1",
		BuildingID: "B1",
		Label:      "Acquisition",
		Principal:  dec("200000"),
		Rate:       dec("3.0"),
		Term:       240,
		Start:      day("2020-01-01"),
		Type:       loan.Amortizing,
		Insurance:  dec("25"),
	}
}

func within(t *testing.T, expected, actual, tolerance decimal.Decimal) {
	t.Helper()
	diff := expected.Sub(actual).Abs()
	assert.True(t, diff.LessThanOrEqual(tolerance), "expected %s, got %s (tolerance %s)", expected, actual, tolerance)
}

// =============================================================================
// MONTHLY PAYMENT
// =============================================================================

func TestMonthlyPayment_Amortizing(t *testing.T) {
	l := mortgage()

	payment := loan.MonthlyPayment(l)

	assert.Equal(t, "1109.20", generic.RoundMoney(payment).StringFixed(2))
	assert.Equal(t, "1134.20", generic.RoundMoney(loan.MonthlyPaymentWithInsurance(l)).StringFixed(2))
}

func TestMonthlyPayment_ZeroRateAndInterestOnly(t *testing.T) {
	zero := loan.Loan{ID: "z", Principal: dec("12000"), Rate: decimal.Zero, Term: 24, Start: day("2020-01-01"), Type: loan.Amortizing}
	assert.True(t, loan.MonthlyPayment(zero).Equal(dec("500")))

	io := loan.Loan{ID: "io", Principal: dec("120000"), Rate: dec("2.4"), Term: 120, Start: day("2020-01-01"), Type: loan.InterestOnly}
	assert.Equal(t, "240.00", generic.RoundMoney(loan.MonthlyPayment(io)).StringFixed(2))
}

// =============================================================================
// CAPITAL REMAINING
// =============================================================================

func TestCapitalRemainingAt(t *testing.T) {
	l := mortgage()

	at60 := loan.CapitalRemainingAt(l, day("2025-01-01"))
	at120 := loan.CapitalRemainingAt(l, day("2030-01-01"))

	within(t, dec("160617.53"), at60, dec("0.01"))
	within(t, dec("114870.20"), at120, dec("0.01"))
	assert.True(t, at120.IsPositive())
	assert.True(t, at120.LessThan(at60))
	assert.True(t, at60.LessThan(l.Principal))
}

func TestCapitalRemainingAt_Bounds(t *testing.T) {
	l := mortgage()

	assert.True(t, loan.CapitalRemainingAt(l, day("2019-12-31")).Equal(l.Principal), "before start")
	assert.True(t, loan.CapitalRemainingAt(l, day("2020-01-15")).Equal(l.Principal), "no installment yet")
	assert.True(t, loan.CapitalRemainingAt(l, day("2040-01-01")).IsZero(), "term end")
	assert.True(t, loan.CapitalRemainingAt(l, day("2055-06-01")).IsZero())
}

func TestCapitalRemainingAt_NonIncreasing(t *testing.T) {
	l := mortgage()
	prev := l.Principal

	for d := l.Start; !d.After(l.TermEnd()); d = d.AddMonths(1) {
		crd := loan.CapitalRemainingAt(l, d)
		require.True(t, crd.LessThanOrEqual(prev), "CRD increased at %s: %s > %s", d, crd, prev)
		prev = crd
	}
}

func TestCapitalRemainingAt_InterestOnlyAndZeroRate(t *testing.T) {
	io := loan.Loan{ID: "io", Principal: dec("120000"), Rate: dec("2.4"), Term: 120, Start: day("2020-01-01"), Type: loan.InterestOnly}
	assert.True(t, loan.CapitalRemainingAt(io, day("2029-12-31")).Equal(dec("120000")))
	assert.True(t, loan.CapitalRemainingAt(io, day("2030-01-01")).IsZero())

	zero := loan.Loan{ID: "z", Principal: dec("12000"), Rate: decimal.Zero, Term: 24, Start: day("2020-01-01"), Type: loan.Amortizing}
	assert.True(t, loan.CapitalRemainingAt(zero, day("2021-01-01")).Equal(dec("6000")))
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestGenerateSchedule_MatchesClosedForm(t *testing.T) {
	l := mortgage()

	schedule, err := loan.GenerateSchedule(l)
	require.NoError(t, err)
	require.Len(t, schedule, 240)

	capital := decimal.Zero
	for _, in := range schedule {
		capital = capital.Add(in.Capital)
		within(t, loan.CapitalRemainingAt(l, in.Date), in.CapitalRemaining, dec("0.01"))
	}
	assert.True(t, capital.Equal(l.Principal), "capital sums to principal, got %s", capital)

	first := schedule[0]
	assert.True(t, first.Date.Equal(day("2020-02-01")))
	assert.Equal(t, "500.00", first.Interest.StringFixed(2))
	assert.Equal(t, "609.20", first.Capital.StringFixed(2))
	assert.True(t, first.Insurance.Equal(dec("25")))

	last := schedule[239]
	assert.True(t, last.Date.Equal(l.TermEnd()))
	assert.True(t, last.CapitalRemaining.IsZero())
}

func TestGenerateSchedule_InterestOnly(t *testing.T) {
	io := loan.Loan{ID: "io", Principal: dec("120000"), Rate: dec("2.4"), Term: 12, Start: day("2020-01-01"), Type: loan.InterestOnly}

	schedule, err := loan.GenerateSchedule(io)

	require.NoError(t, err)
	require.Len(t, schedule, 12)
	for _, in := range schedule[:11] {
		assert.True(t, in.Capital.IsZero())
		assert.Equal(t, "240.00", in.Interest.StringFixed(2))
		assert.True(t, in.CapitalRemaining.Equal(dec("120000")))
	}
	assert.True(t, schedule[11].Capital.Equal(dec("120000")))
	assert.True(t, schedule[11].CapitalRemaining.IsZero())
}

func TestGenerateSchedule_InvalidLoan(t *testing.T) {
	bad := mortgage()
	bad.Term = 0

	_, err := loan.GenerateSchedule(bad)

	assert.True(t, errors.Is(err, generic.ErrInvalidLoan))
}

func TestYearlyCost(t *testing.T) {
	schedule, err := loan.GenerateSchedule(mortgage())
	require.NoError(t, err)

	interest, insurance := loan.YearlyCost(schedule, 2020)

	// installments of Feb..Dec 2020
	assert.True(t, insurance.Equal(dec("275")))
	assert.True(t, interest.GreaterThan(dec("5400")) && interest.LessThan(dec("5430")), "interest = %s", interest)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_RegenerateReplacesAll(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveLoan(ctx, mortgage()))
	s := loan.NewScheduler(store, zerolog.Nop())

	_, err := s.Regenerate(ctx, "loan-1")
	require.NoError(t, err)
	require.NoError(t, store.MarkInstallmentPaid(ctx, "loan-1", 1, day("2020-02-01")))
	_, err = s.Regenerate(ctx, "loan-1")
	require.NoError(t, err)

	stored, err := store.Installments(ctx, "loan-1")
	require.NoError(t, err)
	assert.Len(t, stored, 240, "no duplicates after a second run")
	assert.False(t, stored[0].Paid)

	_, err = s.Regenerate(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))
}

func TestOutstandingAt(t *testing.T) {
	second := mortgage()
	second.ID = "loan-2"
	second.Start = day("2030-01-01")

	total := loan.OutstandingAt([]loan.Loan{mortgage(), second}, day("2025-01-01"))

	within(t, dec("360617.53"), total, dec("0.01"))
}
