package lease

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
)

// =============================================================================
// PROVISION CALCULATOR - Charges advances due over a date range
// =============================================================================

// ProvisionLine is the audit line of one calendar month.
type ProvisionLine struct {
	Month       generic.Date   // first day of the calendar month
	Present     generic.Period // part of the month inside the occupancy window
	DaysPresent int
	DaysInMonth int
	TariffID    TariffID
	Provision   decimal.Decimal // monthly provision of the tariff
	Amount      decimal.Decimal // unrounded contribution
}

// Full reports a month billed at the exact provision.
func (l ProvisionLine) Full() bool { return l.DaysPresent == l.DaysInMonth }

func (l ProvisionLine) String() string {
	if l.Full() {
		return fmt.Sprintf("%s: %s (full month)", l.Month.Time.Format("2006-01"), generic.RoundMoney(l.Provision).StringFixed(2))
	}
	return fmt.Sprintf("%s: %s x %d/%d days = %s", l.Month.Time.Format("2006-01"),
		generic.RoundMoney(l.Provision).StringFixed(2), l.DaysPresent, l.DaysInMonth,
		generic.RoundMoney(l.Amount).StringFixed(2))
}

// ProvisionResult is the total due with one line per touched month.
// Total is unrounded; use Rounded for display and storage.
type ProvisionResult struct {
	Occupancy *generic.Period
	Total     decimal.Decimal
	Lines     []ProvisionLine
	Note      string
}

// Rounded returns the total in cents.
func (r ProvisionResult) Rounded() decimal.Decimal { return generic.RoundMoney(r.Total) }

// ProvisionCalculator walks a range month by month and prorates the charges
// provision by the days the tenant was present.
type ProvisionCalculator struct {
	Log zerolog.Logger
}

// NewProvisionCalculator creates a calculator logging to log.
func NewProvisionCalculator(log zerolog.Logger) *ProvisionCalculator {
	return &ProvisionCalculator{Log: log}
}

// Due returns the provisions billed for [start, end].
//
// The tariff of each month is the one active on the 1st of the calendar
// month, even when the tenant arrived later in that month. A month without a
// tariff aborts the whole computation with a TariffNotFoundError. Charges is
// read as a monthly provision whatever the billing frequency of the lease.
func (c *ProvisionCalculator) Due(tl *Timeline, start, end generic.Date) (ProvisionResult, error) {
	occ, ok := tl.Lease.OccupancyWithin(start, end)
	if !ok {
		return ProvisionResult{
			Total: decimal.Zero,
			Note:  fmt.Sprintf("no occupancy between %s and %s", start, end),
		}, nil
	}

	result := ProvisionResult{Occupancy: &occ, Total: decimal.Zero}
	for _, month := range occ.Months() {
		present, ok := generic.Intersect(month, occ)
		if !ok {
			continue
		}
		tariff, err := tl.MustTariffAt(month.Start)
		if err != nil {
			return ProvisionResult{}, err
		}

		line := ProvisionLine{
			Month:       month.Start,
			Present:     present,
			DaysPresent: present.Days(),
			DaysInMonth: month.Days(),
			TariffID:    tariff.ID,
			Provision:   tariff.Charges,
		}
		if line.Full() {
			line.Amount = tariff.Charges
		} else {
			line.Amount = generic.Prorate(tariff.Charges, line.DaysPresent, line.DaysInMonth)
		}
		result.Total = result.Total.Add(line.Amount)
		result.Lines = append(result.Lines, line)
	}

	c.Log.Debug().
		Str("lease_id", string(tl.Lease.ID)).
		Str("occupancy", occ.String()).
		Int("months", len(result.Lines)).
		Str("total", result.Rounded().StringFixed(2)).
		Msg("provisions computed")
	return result, nil
}
