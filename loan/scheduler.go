package loan

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

// Store persists loans and their installments. ReplaceInstallments must
// delete every existing installment of the loan and insert the new ones as
// one atomic unit.
type Store interface {
	SaveLoan(ctx context.Context, l Loan) error
	Loan(ctx context.Context, id ID) (Loan, error)
	Loans(ctx context.Context, building lease.BuildingID) ([]Loan, error)
	Installments(ctx context.Context, id ID) ([]Installment, error)
	ReplaceInstallments(ctx context.Context, id ID, schedule []Installment) error
	MarkInstallmentPaid(ctx context.Context, id ID, number int, on generic.Date) error
}

// Scheduler regenerates stored schedules.
type Scheduler struct {
	Store Store
	Log   zerolog.Logger
}

// NewScheduler creates a scheduler over store.
func NewScheduler(store Store, log zerolog.Logger) *Scheduler {
	return &Scheduler{Store: store, Log: log}
}

// Regenerate computes the schedule of a stored loan and replaces every
// installment previously stored for it. Calling it twice with unchanged
// terms leaves the same rows.
func (s *Scheduler) Regenerate(ctx context.Context, id ID) ([]Installment, error) {
	l, err := s.Store.Loan(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := GenerateSchedule(l)
	if err != nil {
		return nil, err
	}
	if err := s.Store.ReplaceInstallments(ctx, id, schedule); err != nil {
		return nil, fmt.Errorf("failed to store schedule of loan %s: %w", id, err)
	}
	s.Log.Info().
		Str("loan_id", string(id)).
		Int("installments", len(schedule)).
		Str("monthly_payment", generic.RoundMoney(MonthlyPaymentWithInsurance(l)).StringFixed(2)).
		Msg("loan schedule regenerated")
	return schedule, nil
}

// OutstandingAt sums the capital remaining at date over loans.
func OutstandingAt(loans []Loan, date generic.Date) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(CapitalRemainingAt(l, date))
	}
	return total
}
