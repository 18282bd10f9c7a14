package charges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

// =============================================================================
// TRAIL - Line-by-line audit of a settlement
// =============================================================================

// TrailKind classifies a trail line.
type TrailKind string

const (
	TrailExpense    TrailKind = "expense"
	TrailReading    TrailKind = "reading"
	TrailAdjustment TrailKind = "adjustment"
	TrailSkipped    TrailKind = "skipped"
)

// TrailLine records one contribution with the numbers used to compute it.
type TrailLine struct {
	Kind   TrailKind
	Ref    string // expense, reading or adjustment ID
	Label  string
	Base   decimal.Decimal // expense allocation, reading quantity or adjustment amount
	Days   int             // days counted, 0 when not prorated by days
	OfDays int             // days of the service window
	Amount decimal.Decimal // unrounded contribution to the real total
	Detail string
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// SettlementInput is the reference data of one run. Records that do not
// belong to the lease's building, local or lease are ignored.
type SettlementInput struct {
	Timeline    *lease.Timeline
	Ledger      *Ledger
	Expenses    []Expense
	Readings    []MeterReading
	Adjustments []Adjustment
	Start       generic.Date
	End         generic.Date
}

// Settlement is the outcome of Settle. Totals are unrounded; Record holds
// the rounded values that are stored.
type Settlement struct {
	Record           Record
	Occupancy        *generic.Period
	DaysInPeriod     int
	DaysPresent      int
	PresenceRatio    decimal.Decimal
	ExpensesTotal    decimal.Decimal
	ConsumptionTotal decimal.Decimal
	AdjustmentsTotal decimal.Decimal
	RealTotal        decimal.Decimal
	Provisions       lease.ProvisionResult
	Balance          decimal.Decimal
	Trail            []TrailLine
	Recorded         bool
}

// Engine runs regularizations. The zero value is not usable; build it with
// NewEngine.
type Engine struct {
	Provisions *lease.ProvisionCalculator
	Store      RecordStore // required only when recording history
	Log        zerolog.Logger
	Now        func() time.Time
}

// NewEngine creates an engine persisting records to store (may be nil).
func NewEngine(store RecordStore, log zerolog.Logger) *Engine {
	return &Engine{
		Provisions: lease.NewProvisionCalculator(log),
		Store:      store,
		Log:        log,
		Now:        time.Now,
	}
}

// Settle compares the tenant's real costs over [Start, End] with the
// provisions billed. When recordHistory is set, a new Record is appended;
// nothing is stored if any step fails.
//
// Callers must not run two settlements of the same lease concurrently.
func (e *Engine) Settle(ctx context.Context, in SettlementInput, recordHistory bool) (Settlement, error) {
	if in.End.Before(in.Start) {
		return Settlement{}, fmt.Errorf("regularization %s..%s: %w", in.Start, in.End, generic.ErrInvalidPeriod)
	}
	if in.Ledger == nil {
		in.Ledger, _ = NewLedger(nil, nil)
	}
	l := in.Timeline.Lease
	log := e.Log.With().Str("lease_id", string(l.ID)).Logger()

	// Provisions first: a missing tariff aborts before any other work.
	provisions, err := e.Provisions.Due(in.Timeline, in.Start, in.End)
	if err != nil {
		return Settlement{}, err
	}

	period := generic.Period{Start: in.Start, End: in.End}
	s := Settlement{
		DaysInPeriod:     period.Days(),
		Provisions:       provisions,
		ExpensesTotal:    decimal.Zero,
		ConsumptionTotal: decimal.Zero,
		AdjustmentsTotal: decimal.Zero,
	}
	occ, present := l.OccupancyWithin(in.Start, in.End)
	if present {
		s.Occupancy = &occ
		s.DaysPresent = occ.Days()
	}
	s.PresenceRatio = generic.Ratio(s.DaysPresent, s.DaysInPeriod)

	for _, exp := range in.Expenses {
		if exp.BuildingID != "" && exp.BuildingID != l.BuildingID {
			continue
		}
		line, ok := e.expenseLine(log, in.Ledger, l, exp, period, s.Occupancy, s.PresenceRatio)
		if !ok {
			continue
		}
		s.Trail = append(s.Trail, line)
		if line.Kind == TrailExpense {
			s.ExpensesTotal = s.ExpensesTotal.Add(line.Amount)
		}
	}

	for _, r := range in.Readings {
		if r.LocalID != l.LocalID {
			continue
		}
		line, ok := e.readingLine(log, in.Ledger, r, period)
		if !ok {
			continue
		}
		s.Trail = append(s.Trail, line)
		if line.Kind == TrailReading {
			s.ConsumptionTotal = s.ConsumptionTotal.Add(line.Amount)
		}
	}

	for _, adj := range in.Adjustments {
		if adj.LeaseID != l.ID || !period.Contains(adj.Date) {
			continue
		}
		s.AdjustmentsTotal = s.AdjustmentsTotal.Add(adj.Amount)
		s.Trail = append(s.Trail, TrailLine{
			Kind: TrailAdjustment, Ref: adj.ID, Label: adj.Label,
			Base: adj.Amount, Amount: adj.Amount,
			Detail: "manual adjustment of " + adj.Date.String(),
		})
	}

	s.RealTotal = generic.Sum(s.ExpensesTotal, s.ConsumptionTotal, s.AdjustmentsTotal)
	s.Balance = s.RealTotal.Sub(provisions.Total)

	realRounded := generic.RoundMoney(s.RealTotal)
	provRounded := provisions.Rounded()
	s.Record = Record{
		ID:              uuid.NewString(),
		LeaseID:         l.ID,
		PeriodStart:     in.Start,
		PeriodEnd:       in.End,
		RealTotal:       realRounded,
		ProvisionsTotal: provRounded,
		Balance:         realRounded.Sub(provRounded),
		CreatedAt:       e.now(),
	}

	if recordHistory {
		if e.Store == nil {
			return Settlement{}, generic.ErrStoreRequired
		}
		if err := e.Store.AppendRecord(ctx, s.Record); err != nil {
			return Settlement{}, fmt.Errorf("failed to record regularization: %w", err)
		}
		s.Recorded = true
	}

	log.Info().
		Str("period", period.String()).
		Str("real_total", realRounded.StringFixed(2)).
		Str("provisions_total", provRounded.StringFixed(2)).
		Str("balance", s.Record.Balance.StringFixed(2)).
		Bool("recorded", s.Recorded).
		Msg("regularization settled")
	return s, nil
}

// expenseLine allocates one expense. ok is false when the expense does not
// concern the period at all.
func (e *Engine) expenseLine(log zerolog.Logger, ledger *Ledger, l lease.Lease, exp Expense, period generic.Period, occ *generic.Period, ratio decimal.Decimal) (TrailLine, bool) {
	inPeriod := period.Contains(exp.Date)
	overlaps := exp.Service != nil && exp.Service.Overlaps(period)
	if !inPeriod && !overlaps {
		return TrailLine{}, false
	}

	if exp.KeyID == nil {
		return skipped(log, "expense", exp.ID, exp.Label,
			&generic.ConfigurationError{Kind: generic.KindMissingKey, Subject: "expense:" + exp.ID}), true
	}
	allocation, err := ledger.TheoreticalAllocation(*exp.KeyID, l.LocalID, exp.Amount)
	if err != nil {
		return skipped(log, "expense", exp.ID, exp.Label, err), true
	}
	if _, ok := ledger.ShareOf(*exp.KeyID, l.LocalID); !ok {
		log.Debug().Str("expense_id", exp.ID).Str("key_id", string(*exp.KeyID)).Msg("local has no share under key, expense not allocated")
		return TrailLine{}, false
	}

	line := TrailLine{Kind: TrailExpense, Ref: exp.ID, Label: exp.Label, Base: allocation}
	if exp.Service == nil {
		line.Amount = allocation.Mul(ratio)
		line.Detail = fmt.Sprintf("%s x presence %s", generic.RoundMoney(allocation).StringFixed(2), ratio.StringFixed(4))
		return line, true
	}

	line.OfDays = exp.Service.Days()
	if line.OfDays <= 0 {
		line.OfDays = 1
	}
	if occ != nil {
		line.Days = generic.OverlapDays(*exp.Service, period, *occ)
	}
	line.Amount = generic.Prorate(allocation, line.Days, line.OfDays)
	line.Detail = fmt.Sprintf("%s x %d/%d days of %s", generic.RoundMoney(allocation).StringFixed(2), line.Days, line.OfDays, exp.Service)
	return line, true
}

// readingLine prices one meter reading. ok is false when the reading does not
// concern the period at all.
func (e *Engine) readingLine(log zerolog.Logger, ledger *Ledger, r MeterReading, period generic.Period) (TrailLine, bool) {
	window, hasWindow := r.Window()
	inPeriod := period.Contains(r.ReadingDate)
	overlaps := hasWindow && window.Overlaps(period)
	if !inPeriod && !overlaps {
		return TrailLine{}, false
	}

	key, ok := ledger.Key(r.KeyID)
	if !ok {
		return skipped(log, "reading", r.ID, r.Label,
			&generic.ConfigurationError{Kind: generic.KindUnknownKey, Subject: "key:" + string(r.KeyID)}), true
	}
	if key.Mode != ModeMeter || key.UnitPrice == nil {
		return skipped(log, "reading", r.ID, r.Label,
			&generic.ConfigurationError{Kind: generic.KindMissingUnitPrice, Subject: "key:" + string(r.KeyID)}), true
	}

	line := TrailLine{Kind: TrailReading, Ref: r.ID, Label: r.Label, Base: r.Quantity()}
	quantity := r.Quantity()
	if hasWindow {
		line.OfDays = window.Days()
		if line.OfDays <= 0 {
			line.OfDays = 1
		}
		line.Days = generic.OverlapDays(window, period)
		quantity = generic.Prorate(quantity, line.Days, line.OfDays)
	}
	line.Amount = quantity.Mul(*key.UnitPrice)
	line.Detail = fmt.Sprintf("%s units x %s", quantity.StringFixed(2), key.UnitPrice.String())
	if hasWindow {
		line.Detail = fmt.Sprintf("%s units (%d/%d days) x %s", quantity.StringFixed(2), line.Days, line.OfDays, key.UnitPrice.String())
	}
	return line, true
}

func skipped(log zerolog.Logger, kind, id, label string, err error) TrailLine {
	log.Warn().Err(err).Str(kind+"_id", id).Msg(kind + " skipped")
	return TrailLine{Kind: TrailSkipped, Ref: id, Label: label, Amount: decimal.Zero, Detail: err.Error()}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// =============================================================================
// STORE-BACKED RUN
// =============================================================================

// SettleLease loads the lease, its tariffs and the reference data from the
// stores, then runs Settle.
func (e *Engine) SettleLease(ctx context.Context, leases lease.Store, src Source, id lease.ID, start, end generic.Date, recordHistory bool) (Settlement, error) {
	tl, err := lease.LoadTimeline(ctx, leases, id)
	if err != nil {
		return Settlement{}, err
	}
	building := tl.Lease.BuildingID
	window := generic.Period{Start: start, End: end}

	keys, err := src.Keys(ctx, building)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to load keys: %w", err)
	}
	shares, err := src.Shares(ctx, building)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to load shares: %w", err)
	}
	ledger, err := NewLedger(keys, shares)
	if err != nil {
		return Settlement{}, err
	}
	expenses, err := src.Expenses(ctx, building, window)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to load expenses: %w", err)
	}
	readings, err := src.Readings(ctx, tl.Lease.LocalID, window)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to load readings: %w", err)
	}
	adjustments, err := src.Adjustments(ctx, id, window)
	if err != nil {
		return Settlement{}, fmt.Errorf("failed to load adjustments: %w", err)
	}

	return e.Settle(ctx, SettlementInput{
		Timeline:    tl,
		Ledger:      ledger,
		Expenses:    expenses,
		Readings:    readings,
		Adjustments: adjustments,
		Start:       start,
		End:         end,
	}, recordHistory)
}
