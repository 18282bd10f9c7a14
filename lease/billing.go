package lease

import (
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
)

// =============================================================================
// BILLING - Rent proration, amounts due and end-of-lease settlement
// =============================================================================
//
// Tariff amounts are expressed per billing period of the lease: a quarterly
// lease stores its quarterly rent.

// BillingPeriod returns the month or calendar quarter containing date.
func (l Lease) BillingPeriod(date generic.Date) generic.Period {
	if l.Frequency == Quarterly {
		return generic.QuarterPeriod(date)
	}
	return generic.MonthPeriod(date.Year(), date.Month())
}

// BillingPeriods lists the billing periods from the lease start through asOf
// (or the lease end, whichever comes first), most recent first.
func BillingPeriods(l Lease, asOf generic.Date) []generic.Period {
	last := asOf
	if l.End != nil {
		last = generic.Min(last, *l.End)
	}
	var periods []generic.Period
	for p := l.BillingPeriod(l.Start); !p.Start.After(last); p = l.BillingPeriod(p.End.AddDays(1)) {
		periods = append([]generic.Period{p}, periods...)
	}
	return periods
}

// Prorata is the rent due for part of a billing period.
type Prorata struct {
	Period       generic.Period // full billing period
	Present      generic.Period
	DaysPresent  int
	DaysInPeriod int
	PeriodRent   decimal.Decimal
	Amount       decimal.Decimal // rounded to cents
}

// RentProrata prorates the rent of the billing period containing from, for
// the days in [from, to]. The tariff is the one active on from.
func RentProrata(tl *Timeline, from, to generic.Date) (Prorata, error) {
	tariff, err := tl.MustTariffAt(from)
	if err != nil {
		return Prorata{}, err
	}
	return prorate(tariff, tl.Lease.BillingPeriod(from), generic.Period{Start: from, End: to}), nil
}

func prorate(tariff TariffPeriod, billing, present generic.Period) Prorata {
	p := Prorata{
		Period:       billing,
		Present:      present,
		DaysPresent:  present.Days(),
		DaysInPeriod: billing.Days(),
		PeriodRent:   tariff.Rent,
	}
	p.Amount = generic.RoundMoney(generic.Prorate(tariff.Rent, p.DaysPresent, p.DaysInPeriod))
	return p
}

// Due is the amount billed for one billing period (receipt or payment notice).
type Due struct {
	Period  generic.Period
	Rent    decimal.Decimal
	Charges decimal.Decimal
	Taxes   decimal.Decimal
	VAT     decimal.Decimal
	Total   decimal.Decimal
}

// AmountDue returns the amounts of the billing period starting at start. The
// tariff amounts are taken as they are, without scaling to the period length.
// VAT, when the lease is subject, applies to rent plus charges.
func AmountDue(tl *Timeline, start generic.Date) (Due, error) {
	tariff, err := tl.MustTariffAt(start)
	if err != nil {
		return Due{}, err
	}
	end := start.AddMonths(1).AddDays(-1)
	if tl.Lease.Frequency == Quarterly {
		end = start.AddMonths(3).AddDays(-1)
	}
	vat := generic.RoundMoney(generic.PercentOf(tariff.Rent.Add(tariff.Charges), tl.Lease.EffectiveVATRate()))
	return Due{
		Period:  generic.Period{Start: start, End: end},
		Rent:    tariff.Rent,
		Charges: tariff.Charges,
		Taxes:   tariff.Taxes,
		VAT:     vat,
		Total:   tariff.PeriodTotal().Add(vat),
	}, nil
}

// ExitStatement is the end-of-lease statement ("solde de tout compte").
type ExitStatement struct {
	ExitDate   generic.Date
	Prorata    Prorata
	Deposit    decimal.Decimal
	RentImpact decimal.Decimal // negative: tenant owes; positive: refund
	Deductions decimal.Decimal
	Final      decimal.Decimal // amount returned to the tenant
}

// FinalSettlement computes deposit + rent impact - deductions for a tenant
// leaving on exitDate, using the tariff active that day. When the last
// period's rent is unpaid the prorated rent is owed; when it was paid the
// unused days are refunded.
func FinalSettlement(tl *Timeline, exitDate generic.Date, rentPaid bool, deductions decimal.Decimal) (ExitStatement, error) {
	tariff, err := tl.MustTariffAt(exitDate)
	if err != nil {
		return ExitStatement{}, err
	}
	billing := tl.Lease.BillingPeriod(exitDate)
	pr := prorate(tariff, billing, generic.Period{Start: billing.Start, End: exitDate})

	impact := pr.Amount.Neg()
	if rentPaid {
		impact = pr.PeriodRent.Sub(pr.Amount)
	}
	return ExitStatement{
		ExitDate:   exitDate,
		Prorata:    pr,
		Deposit:    tl.Lease.Deposit,
		RentImpact: impact,
		Deductions: deductions,
		Final:      tl.Lease.Deposit.Add(impact).Sub(deductions),
	}, nil
}
