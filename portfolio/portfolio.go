/*
Package portfolio derives building-level figures from leases and loans:
valuation, yields, monthly cash flow, the annual fiscal summary and the
vacancy rate.

KEY CONCEPTS:
  - Building: purchase price, acquisition costs and the locals it contains
  - Estimate: a dated market valuation of a building
  - FiscalCharge: a deductible cost declared for a tax year
  - Valuation: value, outstanding debt, net value and unrealized gain at a date
  - CashFlow: monthly rent against monthly loan payments, with the debt ratio

Every figure takes an explicit as-of date or year. Nothing reads the clock.

SEE ALSO:
  - loan/amortization.go: CapitalRemainingAt and YearlyCost feed debt and interest
  - lease/timeline.go: tariffs feed the annual rent
*/
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
)

var hundred = decimal.NewFromInt(100)

// Building is a property held in the portfolio.
type Building struct {
	ID               lease.BuildingID
	Name             string
	PurchasePrice    decimal.Decimal
	AcquisitionCosts decimal.Decimal // notary, agency and works at purchase
	PurchaseDate     generic.Date
	Locals           []lease.LocalID
}

// AcquisitionCost is the purchase price plus acquisition costs.
func (b Building) AcquisitionCost() decimal.Decimal {
	return b.PurchasePrice.Add(b.AcquisitionCosts)
}

// Estimate is a market valuation at a date.
type Estimate struct {
	ID         string
	BuildingID lease.BuildingID
	Date       generic.Date
	Value      decimal.Decimal
}

// FiscalCharge is a deductible cost of a tax year.
type FiscalCharge struct {
	ID         string
	BuildingID lease.BuildingID
	Year       int
	Category   string
	Amount     decimal.Decimal
}

// =============================================================================
// VALUATION
// =============================================================================

// CurrentValue returns the latest estimate dated on or before asOf, or the
// purchase price when there is none.
func CurrentValue(b Building, estimates []Estimate, asOf generic.Date) decimal.Decimal {
	var latest *Estimate
	for i := range estimates {
		e := &estimates[i]
		if e.BuildingID != b.ID || e.Date.After(asOf) {
			continue
		}
		if latest == nil || e.Date.After(latest.Date) {
			latest = e
		}
	}
	if latest == nil {
		return b.PurchasePrice
	}
	return latest.Value
}

// Valuation is the balance sheet of one building at a date.
type Valuation struct {
	BuildingID      lease.BuildingID
	AsOf            generic.Date
	Value           decimal.Decimal
	OutstandingDebt decimal.Decimal
	NetValue        decimal.Decimal
	AcquisitionCost decimal.Decimal
	UnrealizedGain  decimal.Decimal
}

// Value computes the valuation of b at asOf. Loans of other buildings are
// ignored.
func Value(b Building, estimates []Estimate, loans []loan.Loan, asOf generic.Date) Valuation {
	var own []loan.Loan
	for _, l := range loans {
		if l.BuildingID == b.ID {
			own = append(own, l)
		}
	}
	v := Valuation{
		BuildingID:      b.ID,
		AsOf:            asOf,
		Value:           CurrentValue(b, estimates, asOf),
		OutstandingDebt: generic.RoundMoney(loan.OutstandingAt(own, asOf)),
		AcquisitionCost: b.AcquisitionCost(),
	}
	v.NetValue = v.Value.Sub(v.OutstandingDebt)
	v.UnrealizedGain = v.Value.Sub(v.AcquisitionCost)
	return v
}

// =============================================================================
// RENT AND YIELDS
// =============================================================================

// AnnualRent sums the monthly rent (excluding charges and taxes) billed over
// a calendar year. Each month a lease occupies counts in full at the rent in
// force on its first occupied day. A month without tariff is an error.
func AnnualRent(timelines []*lease.Timeline, year int) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tl := range timelines {
		occ, ok := tl.Lease.OccupancyWithin(generic.StartOfYear(year), generic.EndOfYear(year))
		if !ok {
			continue
		}
		for _, month := range occ.Months() {
			t, err := tl.MustTariffAt(generic.Max(month.Start, occ.Start))
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(t.Rent)
		}
	}
	return generic.RoundMoney(total), nil
}

// Yield holds gross and net yields in percent. Both are nil when the
// acquisition cost is zero.
type Yield struct {
	Rent     decimal.Decimal
	Charges  decimal.Decimal
	Interest decimal.Decimal
	Gross    *decimal.Decimal // rent / acquisition cost
	Net      *decimal.Decimal // (rent - charges - interest) / acquisition cost
}

// Yields computes gross and net yields over the acquisition cost.
func Yields(b Building, rent, charges, interest decimal.Decimal) Yield {
	y := Yield{Rent: rent, Charges: charges, Interest: interest}
	cost := b.AcquisitionCost()
	if !cost.IsPositive() {
		return y
	}
	gross := generic.RoundMoney(rent.Mul(hundred).Div(cost))
	net := generic.RoundMoney(rent.Sub(charges).Sub(interest).Mul(hundred).Div(cost))
	y.Gross, y.Net = &gross, &net
	return y
}

// =============================================================================
// CASH FLOW
// =============================================================================

var three = decimal.NewFromInt(3)

// CashFlow compares the monthly rent with the monthly debt service at a date.
type CashFlow struct {
	AsOf        generic.Date
	Rent        decimal.Decimal  // monthly rent of the leases occupying AsOf
	DebtService decimal.Decimal  // monthly payments, insurance included
	Net         decimal.Decimal  // rent - debt service
	DebtRatio   *decimal.Decimal // debt service / rent in percent, nil without rent
}

// MonthlyCashFlow returns the cash flow at asOf. Rent is the tariff in force
// at asOf of every lease occupying that day, a quarterly rent counting for a
// third. Only loans running at asOf (start <= asOf < term end) contribute.
func MonthlyCashFlow(timelines []*lease.Timeline, loans []loan.Loan, asOf generic.Date) (CashFlow, error) {
	rent := decimal.Zero
	for _, tl := range timelines {
		if !tl.Lease.Occupancy().Contains(asOf) {
			continue
		}
		t, err := tl.MustTariffAt(asOf)
		if err != nil {
			return CashFlow{}, err
		}
		if tl.Lease.Frequency == lease.Quarterly {
			rent = rent.Add(t.Rent.Div(three))
		} else {
			rent = rent.Add(t.Rent)
		}
	}

	debt := decimal.Zero
	for _, l := range loans {
		if asOf.Before(l.Start) || !asOf.Before(l.TermEnd()) {
			continue
		}
		debt = debt.Add(loan.MonthlyPaymentWithInsurance(l))
	}

	cf := CashFlow{AsOf: asOf, Rent: generic.RoundMoney(rent), DebtService: generic.RoundMoney(debt)}
	cf.Net = cf.Rent.Sub(cf.DebtService)
	if cf.Rent.IsPositive() {
		ratio := generic.RoundMoney(cf.DebtService.Mul(hundred).Div(cf.Rent))
		cf.DebtRatio = &ratio
	}
	return cf, nil
}

// =============================================================================
// FISCAL SUMMARY
// =============================================================================

// CategoryTotal is the sum of the fiscal charges of one category.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// FiscalSummary is the annual land income statement of a building.
type FiscalSummary struct {
	BuildingID      lease.BuildingID
	Year            int
	GrossRent       decimal.Decimal
	Charges         []CategoryTotal // sorted by category
	ChargesTotal    decimal.Decimal
	LoanInterest    decimal.Decimal
	LoanInsurance   decimal.Decimal
	TotalDeductible decimal.Decimal
	Result          decimal.Decimal // gross rent - total deductible
	Deficit         decimal.Decimal // min(0, result), carried forward
}

// Fiscal builds the summary of year from the gross rent, the declared
// charges and the loan schedules of the building.
func Fiscal(b Building, year int, grossRent decimal.Decimal, charges []FiscalCharge, loans []loan.Loan) (FiscalSummary, error) {
	s := FiscalSummary{
		BuildingID:    b.ID,
		Year:          year,
		GrossRent:     grossRent,
		ChargesTotal:  decimal.Zero,
		LoanInterest:  decimal.Zero,
		LoanInsurance: decimal.Zero,
	}

	byCategory := make(map[string]decimal.Decimal)
	for _, c := range charges {
		if c.BuildingID != b.ID || c.Year != year {
			continue
		}
		byCategory[c.Category] = byCategory[c.Category].Add(c.Amount)
		s.ChargesTotal = s.ChargesTotal.Add(c.Amount)
	}
	for category, amount := range byCategory {
		s.Charges = append(s.Charges, CategoryTotal{Category: category, Amount: amount})
	}
	sort.Slice(s.Charges, func(i, j int) bool { return s.Charges[i].Category < s.Charges[j].Category })

	for _, l := range loans {
		if l.BuildingID != b.ID {
			continue
		}
		schedule, err := loan.GenerateSchedule(l)
		if err != nil {
			return FiscalSummary{}, err
		}
		interest, insurance := loan.YearlyCost(schedule, year)
		s.LoanInterest = s.LoanInterest.Add(interest)
		s.LoanInsurance = s.LoanInsurance.Add(insurance)
	}

	s.TotalDeductible = generic.Sum(s.ChargesTotal, s.LoanInterest, s.LoanInsurance)
	s.Result = s.GrossRent.Sub(s.TotalDeductible)
	s.Deficit = decimal.Min(decimal.Zero, s.Result)
	return s, nil
}

// =============================================================================
// VACANCY
// =============================================================================

// VacancyRate returns the average share of the year, in percent, during which
// the building's locals had no lease. Locals are averaged with equal weight;
// a building without locals has a zero rate.
func VacancyRate(b Building, leases []lease.Lease, year int) decimal.Decimal {
	if len(b.Locals) == 0 {
		return decimal.Zero
	}
	yearPeriod := generic.YearPeriod(year)
	daysInYear := yearPeriod.Days()

	vacant := 0
	for _, local := range b.Locals {
		occupied := make(map[generic.Date]bool)
		for _, l := range leases {
			if l.LocalID != local {
				continue
			}
			occ, ok := l.OccupancyWithin(yearPeriod.Start, yearPeriod.End)
			if !ok {
				continue
			}
			for d := occ.Start; !d.After(occ.End); d = d.AddDays(1) {
				occupied[d] = true
			}
		}
		vacant += daysInYear - len(occupied)
	}

	avg := decimal.NewFromInt(int64(vacant)).Div(decimal.NewFromInt(int64(len(b.Locals))))
	return generic.RoundMoney(avg.Mul(hundred).Div(decimal.NewFromInt(int64(daysInYear))))
}
