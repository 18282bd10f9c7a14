// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/lease-engine/charges"
	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
	"github.com/warp/lease-engine/portfolio"
)

// =============================================================================
// MEMORY STORE - implements lease.TxStore, charges.RecordStore,
// charges.Source, loan.Store and portfolio.Store
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

func New() *Memory {
	return &Memory{st: newState()}
}

type state struct {
	leases       map[lease.ID]lease.Lease
	tariffs      map[lease.ID][]lease.TariffPeriod
	keys         []charges.Key
	shares       []charges.Share
	expenses     []charges.Expense
	readings     []charges.MeterReading
	adjustments  []charges.Adjustment
	records      []charges.Record
	loans        map[loan.ID]loan.Loan
	installments map[loan.ID][]loan.Installment
	buildings    map[lease.BuildingID]portfolio.Building
	estimates    []portfolio.Estimate
	fiscal       []portfolio.FiscalCharge
}

func newState() *state {
	return &state{
		leases:       make(map[lease.ID]lease.Lease),
		tariffs:      make(map[lease.ID][]lease.TariffPeriod),
		loans:        make(map[loan.ID]loan.Loan),
		installments: make(map[loan.ID][]loan.Installment),
		buildings:    make(map[lease.BuildingID]portfolio.Building),
	}
}

// clone copies every collection. Records are values; closing a tariff swaps
// its End pointer instead of writing through it, so shallow copies are safe.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.leases {
		c.leases[k] = v
	}
	for k, v := range s.tariffs {
		c.tariffs[k] = append([]lease.TariffPeriod(nil), v...)
	}
	c.keys = append(c.keys, s.keys...)
	c.shares = append(c.shares, s.shares...)
	c.expenses = append(c.expenses, s.expenses...)
	c.readings = append(c.readings, s.readings...)
	c.adjustments = append(c.adjustments, s.adjustments...)
	c.records = append(c.records, s.records...)
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.installments {
		c.installments[k] = append([]loan.Installment(nil), v...)
	}
	for k, v := range s.buildings {
		c.buildings[k] = v
	}
	c.estimates = append(c.estimates, s.estimates...)
	c.fiscal = append(c.fiscal, s.fiscal...)
	return c
}

// =============================================================================
// LEASES AND TARIFFS (lease.Store)
// =============================================================================

func (s *state) SaveLease(_ context.Context, l lease.Lease) error {
	s.leases[l.ID] = l
	return nil
}

func (s *state) Lease(_ context.Context, id lease.ID) (lease.Lease, error) {
	l, ok := s.leases[id]
	if !ok {
		return lease.Lease{}, &generic.NotFoundError{Kind: "lease", ID: string(id)}
	}
	return l, nil
}

func (s *state) Leases(_ context.Context) ([]lease.Lease, error) {
	out := make([]lease.Lease, 0, len(s.leases))
	for _, l := range s.leases {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) Tariffs(_ context.Context, id lease.ID) ([]lease.TariffPeriod, error) {
	out := append([]lease.TariffPeriod(nil), s.tariffs[id]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *state) InsertTariff(_ context.Context, p lease.TariffPeriod) error {
	for _, existing := range s.tariffs[p.LeaseID] {
		if existing.ID == p.ID {
			return generic.ErrDuplicate
		}
	}
	s.tariffs[p.LeaseID] = append(s.tariffs[p.LeaseID], p)
	return nil
}

func (s *state) CloseTariff(_ context.Context, id lease.TariffID, end generic.Date) error {
	for leaseID, periods := range s.tariffs {
		for i, p := range periods {
			if p.ID != id {
				continue
			}
			closed := end
			periods[i].End = &closed
			s.tariffs[leaseID] = periods
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "tariff", ID: string(id)}
}

// =============================================================================
// CHARGES REFERENCE DATA (charges.Source)
// =============================================================================

func (s *state) Keys(_ context.Context, building lease.BuildingID) ([]charges.Key, error) {
	var out []charges.Key
	for _, k := range s.keys {
		if k.BuildingID == building {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *state) Shares(_ context.Context, building lease.BuildingID) ([]charges.Share, error) {
	inBuilding := make(map[charges.KeyID]bool)
	for _, k := range s.keys {
		if k.BuildingID == building {
			inBuilding[k.ID] = true
		}
	}
	var out []charges.Share
	for _, sh := range s.shares {
		if inBuilding[sh.KeyID] {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *state) Expenses(_ context.Context, building lease.BuildingID, within generic.Period) ([]charges.Expense, error) {
	var out []charges.Expense
	for _, e := range s.expenses {
		if e.BuildingID != building {
			continue
		}
		if within.Contains(e.Date) || (e.Service != nil && e.Service.Overlaps(within)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *state) Readings(_ context.Context, local lease.LocalID, within generic.Period) ([]charges.MeterReading, error) {
	var out []charges.MeterReading
	for _, r := range s.readings {
		if r.LocalID != local {
			continue
		}
		w, ok := r.Window()
		if within.Contains(r.ReadingDate) || (ok && w.Overlaps(within)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *state) Adjustments(_ context.Context, leaseID lease.ID, within generic.Period) ([]charges.Adjustment, error) {
	var out []charges.Adjustment
	for _, a := range s.adjustments {
		if a.LeaseID == leaseID && within.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

// =============================================================================
// REGULARIZATION RECORDS (charges.RecordStore) - append-only
// =============================================================================

func (s *state) AppendRecord(_ context.Context, r charges.Record) error {
	for _, existing := range s.records {
		if existing.ID == r.ID {
			return generic.ErrDuplicate
		}
	}
	s.records = append(s.records, r)
	return nil
}

func (s *state) Records(_ context.Context, leaseID lease.ID) ([]charges.Record, error) {
	var out []charges.Record
	for _, r := range s.records {
		if r.LeaseID == leaseID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *state) Record(_ context.Context, id string) (charges.Record, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return charges.Record{}, &generic.NotFoundError{Kind: "regularization", ID: id}
}

// SavePayment updates the payment tracking fields only.
func (s *state) SavePayment(_ context.Context, r charges.Record) error {
	for i, existing := range s.records {
		if existing.ID == r.ID {
			s.records[i].Paid = r.Paid
			s.records[i].PaidOn = r.PaidOn
			s.records[i].Notes = r.Notes
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "regularization", ID: r.ID}
}

// =============================================================================
// LOANS (loan.Store)
// =============================================================================

func (s *state) SaveLoan(_ context.Context, l loan.Loan) error {
	s.loans[l.ID] = l
	return nil
}

func (s *state) Loan(_ context.Context, id loan.ID) (loan.Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return loan.Loan{}, &generic.NotFoundError{Kind: "loan", ID: string(id)}
	}
	return l, nil
}

func (s *state) Loans(_ context.Context, building lease.BuildingID) ([]loan.Loan, error) {
	var out []loan.Loan
	for _, l := range s.loans {
		if building == "" || l.BuildingID == building {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) Installments(_ context.Context, id loan.ID) ([]loan.Installment, error) {
	return append([]loan.Installment(nil), s.installments[id]...), nil
}

func (s *state) ReplaceInstallments(_ context.Context, id loan.ID, schedule []loan.Installment) error {
	s.installments[id] = append([]loan.Installment(nil), schedule...)
	return nil
}

func (s *state) MarkInstallmentPaid(_ context.Context, id loan.ID, number int, on generic.Date) error {
	for i, in := range s.installments[id] {
		if in.Number == number {
			s.installments[id][i] = in.MarkPaid(on)
			return nil
		}
	}
	return &generic.NotFoundError{Kind: "installment", ID: string(id)}
}

// =============================================================================
// LOCKED ACCESSORS
// =============================================================================

func (m *Memory) SaveLease(ctx context.Context, l lease.Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveLease(ctx, l)
}

func (m *Memory) Lease(ctx context.Context, id lease.ID) (lease.Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Lease(ctx, id)
}

func (m *Memory) Leases(ctx context.Context) ([]lease.Lease, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Leases(ctx)
}

func (m *Memory) Tariffs(ctx context.Context, id lease.ID) ([]lease.TariffPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Tariffs(ctx, id)
}

func (m *Memory) InsertTariff(ctx context.Context, p lease.TariffPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertTariff(ctx, p)
}

func (m *Memory) CloseTariff(ctx context.Context, id lease.TariffID, end generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.CloseTariff(ctx, id, end)
}

// SaveKey adds an apportionment key.
func (m *Memory) SaveKey(_ context.Context, k charges.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.keys = append(m.st.keys, k)
	return nil
}

// SaveShare adds a share; (key, local) must be unique.
func (m *Memory) SaveShare(_ context.Context, sh charges.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.shares {
		if existing.KeyID == sh.KeyID && existing.LocalID == sh.LocalID {
			return generic.ErrDuplicate
		}
	}
	m.st.shares = append(m.st.shares, sh)
	return nil
}

func (m *Memory) SaveExpense(_ context.Context, e charges.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.expenses = append(m.st.expenses, e)
	return nil
}

func (m *Memory) SaveReading(_ context.Context, r charges.MeterReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.readings = append(m.st.readings, r)
	return nil
}

func (m *Memory) SaveAdjustment(_ context.Context, a charges.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.adjustments = append(m.st.adjustments, a)
	return nil
}

func (m *Memory) Keys(ctx context.Context, building lease.BuildingID) ([]charges.Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Keys(ctx, building)
}

func (m *Memory) Shares(ctx context.Context, building lease.BuildingID) ([]charges.Share, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Shares(ctx, building)
}

func (m *Memory) Expenses(ctx context.Context, building lease.BuildingID, within generic.Period) ([]charges.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Expenses(ctx, building, within)
}

func (m *Memory) Readings(ctx context.Context, local lease.LocalID, within generic.Period) ([]charges.MeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Readings(ctx, local, within)
}

func (m *Memory) Adjustments(ctx context.Context, leaseID lease.ID, within generic.Period) ([]charges.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Adjustments(ctx, leaseID, within)
}

func (m *Memory) AppendRecord(ctx context.Context, r charges.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.AppendRecord(ctx, r)
}

func (m *Memory) Records(ctx context.Context, leaseID lease.ID) ([]charges.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Records(ctx, leaseID)
}

func (m *Memory) Record(ctx context.Context, id string) (charges.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Record(ctx, id)
}

func (m *Memory) SavePayment(ctx context.Context, r charges.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SavePayment(ctx, r)
}

func (m *Memory) SaveLoan(ctx context.Context, l loan.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.SaveLoan(ctx, l)
}

func (m *Memory) Loan(ctx context.Context, id loan.ID) (loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Loan(ctx, id)
}

func (m *Memory) Loans(ctx context.Context, building lease.BuildingID) ([]loan.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Loans(ctx, building)
}

func (m *Memory) Installments(ctx context.Context, id loan.ID) ([]loan.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.Installments(ctx, id)
}

func (m *Memory) ReplaceInstallments(ctx context.Context, id loan.ID, schedule []loan.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.ReplaceInstallments(ctx, id, schedule)
}

func (m *Memory) MarkInstallmentPaid(ctx context.Context, id loan.ID, number int, on generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.MarkInstallmentPaid(ctx, id, number, on)
}

// =============================================================================
// BUILDINGS (portfolio.Store)
// =============================================================================

func (m *Memory) SaveBuilding(_ context.Context, b portfolio.Building) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.buildings[b.ID] = b
	return nil
}

func (m *Memory) Building(_ context.Context, id lease.BuildingID) (portfolio.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.st.buildings[id]
	if !ok {
		return portfolio.Building{}, &generic.NotFoundError{Kind: "building", ID: string(id)}
	}
	return b, nil
}

func (m *Memory) Buildings(_ context.Context) ([]portfolio.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]portfolio.Building, 0, len(m.st.buildings))
	for _, b := range m.st.buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveEstimate(_ context.Context, e portfolio.Estimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.estimates = append(m.st.estimates, e)
	return nil
}

func (m *Memory) Estimates(_ context.Context, id lease.BuildingID) ([]portfolio.Estimate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []portfolio.Estimate
	for _, e := range m.st.estimates {
		if e.BuildingID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) SaveFiscalCharge(_ context.Context, c portfolio.FiscalCharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.fiscal = append(m.st.fiscal, c)
	return nil
}

func (m *Memory) FiscalCharges(_ context.Context, id lease.BuildingID, year int) ([]portfolio.FiscalCharge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []portfolio.FiscalCharge
	for _, c := range m.st.fiscal {
		if c.BuildingID == id && c.Year == year {
			out = append(out, c)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS (lease.TxStore)
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + restore on error.
func (m *Memory) WithTx(ctx context.Context, fn func(lease.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}
