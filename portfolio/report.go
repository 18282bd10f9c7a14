package portfolio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
)

// Store persists buildings and their valuation and fiscal reference data.
type Store interface {
	SaveBuilding(ctx context.Context, b Building) error
	Building(ctx context.Context, id lease.BuildingID) (Building, error)
	Buildings(ctx context.Context) ([]Building, error)
	SaveEstimate(ctx context.Context, e Estimate) error
	Estimates(ctx context.Context, id lease.BuildingID) ([]Estimate, error)
	SaveFiscalCharge(ctx context.Context, c FiscalCharge) error
	FiscalCharges(ctx context.Context, id lease.BuildingID, year int) ([]FiscalCharge, error)
}

// Summary gathers every portfolio figure of one building.
type Summary struct {
	Valuation   Valuation
	Year        int
	AnnualRent  decimal.Decimal
	Yield       Yield
	Fiscal      FiscalSummary
	VacancyRate decimal.Decimal
	CashFlow    CashFlow // at the valuation date
}

// Reporter assembles summaries from the stores.
type Reporter struct {
	Buildings Store
	Leases    lease.Store
	Loans     loan.Store
	Log       zerolog.Logger
}

// NewReporter creates a reporter over the three stores.
func NewReporter(buildings Store, leases lease.Store, loans loan.Store, log zerolog.Logger) *Reporter {
	return &Reporter{Buildings: buildings, Leases: leases, Loans: loans, Log: log}
}

// Summary computes the figures of building id for year, valued at asOf.
func (r *Reporter) Summary(ctx context.Context, id lease.BuildingID, year int, asOf generic.Date) (Summary, error) {
	b, err := r.Buildings.Building(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	estimates, err := r.Buildings.Estimates(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load estimates: %w", err)
	}
	charges, err := r.Buildings.FiscalCharges(ctx, id, year)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load fiscal charges: %w", err)
	}
	loans, err := r.Loans.Loans(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load loans: %w", err)
	}
	leases, timelines, err := r.buildingLeases(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	rent, err := AnnualRent(timelines, year)
	if err != nil {
		return Summary{}, err
	}
	fiscal, err := Fiscal(b, year, rent, charges, loans)
	if err != nil {
		return Summary{}, err
	}
	cashFlow, err := MonthlyCashFlow(timelines, loans, asOf)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Valuation:   Value(b, estimates, loans, asOf),
		Year:        year,
		AnnualRent:  rent,
		Yield:       Yields(b, rent, fiscal.ChargesTotal, fiscal.LoanInterest),
		Fiscal:      fiscal,
		VacancyRate: VacancyRate(b, leases, year),
		CashFlow:    cashFlow,
	}
	r.Log.Debug().
		Str("building_id", string(id)).
		Int("year", year).
		Str("annual_rent", rent.StringFixed(2)).
		Str("vacancy_rate", s.VacancyRate.StringFixed(2)).
		Str("monthly_cash_flow", cashFlow.Net.StringFixed(2)).
		Msg("portfolio summary computed")
	return s, nil
}

func (r *Reporter) buildingLeases(ctx context.Context, id lease.BuildingID) ([]lease.Lease, []*lease.Timeline, error) {
	all, err := r.Leases.Leases(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load leases: %w", err)
	}
	var leases []lease.Lease
	var timelines []*lease.Timeline
	for _, l := range all {
		if l.BuildingID != id {
			continue
		}
		periods, err := r.Leases.Tariffs(ctx, l.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load tariffs of lease %s: %w", l.ID, err)
		}
		leases = append(leases, l)
		timelines = append(timelines, lease.NewTimeline(l, periods))
	}
	return leases, timelines, nil
}
