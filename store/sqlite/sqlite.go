/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface of the engine using SQLite. The
  in-memory store in store/memory has the same behavior and backs the tests
  of the domain packages.

INTERFACES IMPLEMENTED:
  lease.TxStore:        Leases and tariff history, with transactions
  charges.Source:       Keys, shares, expenses, readings, adjustments
  charges.RecordStore:  Regularization history
  loan.Store:           Loans and stored schedules
  portfolio.Store:      Buildings, estimates, fiscal charges

APPEND/CLOSE ENFORCEMENT:
  Tariff rows are inserted once; the only UPDATE sets end_date. A partial
  unique index allows one open period per lease. Regularization rows are
  never updated except for payment tracking.

STORAGE FORMATS:
  Money and index values are TEXT decimals (shopspring/decimal Valuer and
  Scanner), so no value goes through a float. Dates are TEXT "2006-01-02",
  which sorts and compares correctly as text.

MIGRATION:
  The schema is versioned under migrations/ and applied on New() with
  golang-migrate, reading the embedded files through the iofs source.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The pool is limited to one
  connection so ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/lease.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - lease/store.go, charges/records.go, loan/scheduler.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/charges"
	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/loan"
	"github.com/warp/lease-engine/portfolio"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path and applies
// pending migrations. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations applies every up migration. The migrate instance is not
// closed: closing it would close db.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEASE STORE (lease.Store interface)
// =============================================================================

// leaseQueries implements lease.Store over a database or a transaction.
type leaseQueries struct {
	q querier
}

func (lq leaseQueries) SaveLease(ctx context.Context, l lease.Lease) error {
	query := `
		INSERT INTO leases (id, local_id, building_id, start_date, end_date, charge_mode,
		                    frequency, subject_vat, vat_rate, deposit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			local_id = excluded.local_id,
			building_id = excluded.building_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			charge_mode = excluded.charge_mode,
			frequency = excluded.frequency,
			subject_vat = excluded.subject_vat,
			vat_rate = excluded.vat_rate,
			deposit = excluded.deposit
	`
	_, err := lq.q.ExecContext(ctx, query,
		l.ID, l.LocalID, l.BuildingID,
		l.Start.String(), nullDate(l.End),
		l.ChargeMode, l.Frequency, l.SubjectVAT, l.VATRate, l.Deposit,
	)
	if err != nil {
		return fmt.Errorf("failed to save lease: %w", err)
	}
	return nil
}

const leaseColumns = `id, local_id, building_id, start_date, end_date, charge_mode,
	frequency, subject_vat, vat_rate, deposit`

func (lq leaseQueries) Lease(ctx context.Context, id lease.ID) (lease.Lease, error) {
	row := lq.q.QueryRowContext(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = ?`, id)
	l, err := scanLease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Lease{}, &generic.NotFoundError{Kind: "lease", ID: string(id)}
	}
	return l, err
}

func (lq leaseQueries) Leases(ctx context.Context) ([]lease.Lease, error) {
	rows, err := lq.q.QueryContext(ctx, `SELECT `+leaseColumns+` FROM leases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	defer rows.Close()

	var leases []lease.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, l)
	}
	return leases, rows.Err()
}

func (lq leaseQueries) Tariffs(ctx context.Context, id lease.ID) ([]lease.TariffPeriod, error) {
	query := `
		SELECT id, lease_id, start_date, end_date, rent, charges, taxes,
		       reference_index, index_period, reason, created_at
		FROM tariff_periods
		WHERE lease_id = ?
		ORDER BY start_date ASC, created_at ASC
	`
	rows, err := lq.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tariffs: %w", err)
	}
	defer rows.Close()

	var periods []lease.TariffPeriod
	for rows.Next() {
		var (
			p         lease.TariffPeriod
			start     string
			end       sql.NullString
			index     decimal.NullDecimal
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.LeaseID, &start, &end, &p.Rent, &p.Charges, &p.Taxes,
			&index, &p.IndexPeriod, &p.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan tariff: %w", err)
		}
		if p.Start, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if p.End, err = scanNullDate(end); err != nil {
			return nil, err
		}
		if index.Valid {
			p.Index = &index.Decimal
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (lq leaseQueries) InsertTariff(ctx context.Context, p lease.TariffPeriod) error {
	query := `
		INSERT INTO tariff_periods
		(id, lease_id, start_date, end_date, rent, charges, taxes,
		 reference_index, index_period, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := lq.q.ExecContext(ctx, query,
		p.ID, p.LeaseID, p.Start.String(), nullDate(p.End),
		p.Rent, p.Charges, p.Taxes, nullDecimal(p.Index),
		p.IndexPeriod, p.Reason, createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("tariff %s: %w", p.ID, generic.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert tariff: %w", err)
	}
	return nil
}

func (lq leaseQueries) CloseTariff(ctx context.Context, id lease.TariffID, end generic.Date) error {
	res, err := lq.q.ExecContext(ctx, `UPDATE tariff_periods SET end_date = ? WHERE id = ?`, end.String(), id)
	if err != nil {
		return fmt.Errorf("failed to close tariff: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "tariff", ID: string(id)}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (lease.Lease, error) {
	var (
		l     lease.Lease
		start string
		end   sql.NullString
	)
	err := row.Scan(&l.ID, &l.LocalID, &l.BuildingID, &start, &end, &l.ChargeMode,
		&l.Frequency, &l.SubjectVAT, &l.VATRate, &l.Deposit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("failed to scan lease: %w", err)
	}
	if l.Start, err = generic.ParseDate(start); err != nil {
		return l, err
	}
	l.End, err = scanNullDate(end)
	return l, err
}

// Locked accessors.

func (s *Store) SaveLease(ctx context.Context, l lease.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return leaseQueries{s.db}.SaveLease(ctx, l)
}

func (s *Store) Lease(ctx context.Context, id lease.ID) (lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaseQueries{s.db}.Lease(ctx, id)
}

func (s *Store) Leases(ctx context.Context) ([]lease.Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaseQueries{s.db}.Leases(ctx)
}

func (s *Store) Tariffs(ctx context.Context, id lease.ID) ([]lease.TariffPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leaseQueries{s.db}.Tariffs(ctx, id)
}

func (s *Store) InsertTariff(ctx context.Context, p lease.TariffPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return leaseQueries{s.db}.InsertTariff(ctx, p)
}

func (s *Store) CloseTariff(ctx context.Context, id lease.TariffID, end generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return leaseQueries{s.db}.CloseTariff(ctx, id, end)
}

// =============================================================================
// TRANSACTIONAL STORE (lease.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Every read and write of
// the Store passed to fn goes through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(lease.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(leaseQueries{sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// CHARGES REFERENCE DATA (charges.Source interface)
// =============================================================================

// SaveKey inserts or replaces an apportionment key.
func (s *Store) SaveKey(ctx context.Context, k charges.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO apportionment_keys (id, building_id, name, mode, unit_price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			building_id = excluded.building_id,
			name = excluded.name,
			mode = excluded.mode,
			unit_price = excluded.unit_price
	`
	_, err := s.db.ExecContext(ctx, query, k.ID, k.BuildingID, k.Name, k.Mode, nullDecimal(k.UnitPrice))
	if err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}
	return nil
}

// SaveShare adds a share; (key, local) must be unique.
func (s *Store) SaveShare(ctx context.Context, sh charges.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (key_id, local_id, weight) VALUES (?, ?, ?)`,
		sh.KeyID, sh.LocalID, sh.Weight)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to save share: %w", err)
	}
	return nil
}

func (s *Store) SaveExpense(ctx context.Context, e charges.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var serviceStart, serviceEnd any
	if e.Service != nil {
		serviceStart, serviceEnd = e.Service.Start.String(), e.Service.End.String()
	}
	var keyID any
	if e.KeyID != nil {
		keyID = string(*e.KeyID)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, building_id, label, amount, date, service_start, service_end, key_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BuildingID, e.Label, e.Amount, e.Date.String(), serviceStart, serviceEnd, keyID)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func (s *Store) SaveReading(ctx context.Context, r charges.MeterReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meter_readings (id, local_id, key_id, label, previous_index, new_index, reading_date, service_start)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.LocalID, r.KeyID, r.Label, r.PreviousIndex, r.NewIndex, r.ReadingDate.String(), nullDate(r.ServiceStart))
	if err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}
	return nil
}

func (s *Store) SaveAdjustment(ctx context.Context, a charges.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO adjustments (id, lease_id, date, label, amount) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.LeaseID, a.Date.String(), a.Label, a.Amount)
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, building lease.BuildingID) ([]charges.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, building_id, name, mode, unit_price FROM apportionment_keys WHERE building_id = ? ORDER BY name`,
		building)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	var keys []charges.Key
	for rows.Next() {
		var (
			k     charges.Key
			price decimal.NullDecimal
		)
		if err := rows.Scan(&k.ID, &k.BuildingID, &k.Name, &k.Mode, &price); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		if price.Valid {
			k.UnitPrice = &price.Decimal
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Shares(ctx context.Context, building lease.BuildingID) ([]charges.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT sh.key_id, sh.local_id, sh.weight
		FROM shares sh
		JOIN apportionment_keys k ON k.id = sh.key_id
		WHERE k.building_id = ?
		ORDER BY sh.key_id, sh.local_id
	`
	rows, err := s.db.QueryContext(ctx, query, building)
	if err != nil {
		return nil, fmt.Errorf("failed to query shares: %w", err)
	}
	defer rows.Close()

	var shares []charges.Share
	for rows.Next() {
		var sh charges.Share
		if err := rows.Scan(&sh.KeyID, &sh.LocalID, &sh.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

// Expenses returns the expenses of building incurred within the period or
// whose service period overlaps it.
func (s *Store) Expenses(ctx context.Context, building lease.BuildingID, within generic.Period) ([]charges.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, building_id, label, amount, date, service_start, service_end, key_id
		FROM expenses
		WHERE building_id = ?
		  AND ((date >= ? AND date <= ?)
		       OR (service_start IS NOT NULL AND service_start <= ? AND service_end >= ?))
		ORDER BY date, id
	`
	from, to := within.Start.String(), within.End.String()
	rows, err := s.db.QueryContext(ctx, query, building, from, to, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []charges.Expense
	for rows.Next() {
		var (
			e                        charges.Expense
			date                     string
			serviceStart, serviceEnd sql.NullString
			keyID                    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.BuildingID, &e.Label, &e.Amount, &date, &serviceStart, &serviceEnd, &keyID); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if serviceStart.Valid && serviceEnd.Valid {
			start, err := generic.ParseDate(serviceStart.String)
			if err != nil {
				return nil, err
			}
			end, err := generic.ParseDate(serviceEnd.String)
			if err != nil {
				return nil, err
			}
			e.Service = &generic.Period{Start: start, End: end}
		}
		if keyID.Valid {
			k := charges.KeyID(keyID.String)
			e.KeyID = &k
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Readings returns the readings of local taken within the period or whose
// window overlaps it.
func (s *Store) Readings(ctx context.Context, local lease.LocalID, within generic.Period) ([]charges.MeterReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, local_id, key_id, label, previous_index, new_index, reading_date, service_start
		FROM meter_readings
		WHERE local_id = ?
		  AND ((reading_date >= ? AND reading_date <= ?)
		       OR (service_start IS NOT NULL AND service_start <= ? AND reading_date >= ?))
		ORDER BY reading_date, id
	`
	from, to := within.Start.String(), within.End.String()
	rows, err := s.db.QueryContext(ctx, query, local, from, to, to, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []charges.MeterReading
	for rows.Next() {
		var (
			r            charges.MeterReading
			readingDate  string
			serviceStart sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.LocalID, &r.KeyID, &r.Label, &r.PreviousIndex, &r.NewIndex, &readingDate, &serviceStart); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if r.ReadingDate, err = generic.ParseDate(readingDate); err != nil {
			return nil, err
		}
		if r.ServiceStart, err = scanNullDate(serviceStart); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) Adjustments(ctx context.Context, leaseID lease.ID, within generic.Period) ([]charges.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lease_id, date, label, amount FROM adjustments
		WHERE lease_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id`,
		leaseID, within.Start.String(), within.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []charges.Adjustment
	for rows.Next() {
		var (
			a    charges.Adjustment
			date string
		)
		if err := rows.Scan(&a.ID, &a.LeaseID, &date, &a.Label, &a.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		if a.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, rows.Err()
}

// =============================================================================
// REGULARIZATION RECORDS (charges.RecordStore interface)
// =============================================================================

// AppendRecord inserts a record. There is no UPDATE path except SavePayment.
func (s *Store) AppendRecord(ctx context.Context, r charges.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO regularizations
		(id, lease_id, period_start, period_end, real_total, provisions_total, balance,
		 created_at, paid, paid_on, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.LeaseID, r.PeriodStart.String(), r.PeriodEnd.String(),
		r.RealTotal, r.ProvisionsTotal, r.Balance,
		r.CreatedAt.UTC().Format(time.RFC3339Nano), r.Paid, nullDate(r.PaidOn), r.Notes,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to append regularization: %w", err)
	}
	return nil
}

const recordColumns = `id, lease_id, period_start, period_end, real_total, provisions_total,
	balance, created_at, paid, paid_on, notes`

// Records returns the history of a lease, oldest first.
func (s *Store) Records(ctx context.Context, leaseID lease.ID) ([]charges.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM regularizations WHERE lease_id = ? ORDER BY rowid`, leaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query regularizations: %w", err)
	}
	defer rows.Close()

	var records []charges.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Record(ctx context.Context, id string) (charges.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM regularizations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return charges.Record{}, &generic.NotFoundError{Kind: "regularization", ID: id}
	}
	return r, err
}

// SavePayment updates the payment tracking fields only.
func (s *Store) SavePayment(ctx context.Context, r charges.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE regularizations SET paid = ?, paid_on = ?, notes = ? WHERE id = ?`,
		r.Paid, nullDate(r.PaidOn), r.Notes, r.ID)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "regularization", ID: r.ID}
	}
	return nil
}

func scanRecord(row rowScanner) (charges.Record, error) {
	var (
		r                charges.Record
		periodStart, end string
		createdAt        string
		paidOn           sql.NullString
	)
	err := row.Scan(&r.ID, &r.LeaseID, &periodStart, &end, &r.RealTotal, &r.ProvisionsTotal,
		&r.Balance, &createdAt, &r.Paid, &paidOn, &r.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan regularization: %w", err)
	}
	if r.PeriodStart, err = generic.ParseDate(periodStart); err != nil {
		return r, err
	}
	if r.PeriodEnd, err = generic.ParseDate(end); err != nil {
		return r, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.PaidOn, err = scanNullDate(paidOn)
	return r, err
}

// =============================================================================
// LOANS (loan.Store interface)
// =============================================================================

func (s *Store) SaveLoan(ctx context.Context, l loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO loans (id, building_id, label, principal, rate, term, start_date, loan_type, insurance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			building_id = excluded.building_id,
			label = excluded.label,
			principal = excluded.principal,
			rate = excluded.rate,
			term = excluded.term,
			start_date = excluded.start_date,
			loan_type = excluded.loan_type,
			insurance = excluded.insurance
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.BuildingID, l.Label, l.Principal, l.Rate, l.Term, l.Start.String(), l.Type, l.Insurance)
	if err != nil {
		return fmt.Errorf("failed to save loan: %w", err)
	}
	return nil
}

const loanColumns = `id, building_id, label, principal, rate, term, start_date, loan_type, insurance`

func (s *Store) Loan(ctx context.Context, id loan.ID) (loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := scanLoan(s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return loan.Loan{}, &generic.NotFoundError{Kind: "loan", ID: string(id)}
	}
	return l, err
}

// Loans returns the loans of building, or every loan when building is empty.
func (s *Store) Loans(ctx context.Context, building lease.BuildingID) ([]loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE ? = '' OR building_id = ? ORDER BY id`, building, building)
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []loan.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (s *Store) Installments(ctx context.Context, id loan.ID) ([]loan.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT loan_id, number, date, capital, interest, insurance, capital_remaining, paid, paid_on
		FROM loan_installments
		WHERE loan_id = ?
		ORDER BY number
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var schedule []loan.Installment
	for rows.Next() {
		var (
			in     loan.Installment
			date   string
			paidOn sql.NullString
		)
		if err := rows.Scan(&in.LoanID, &in.Number, &date, &in.Capital, &in.Interest, &in.Insurance,
			&in.CapitalRemaining, &in.Paid, &paidOn); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		if in.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		if in.PaidOn, err = scanNullDate(paidOn); err != nil {
			return nil, err
		}
		schedule = append(schedule, in)
	}
	return schedule, rows.Err()
}

// ReplaceInstallments deletes every stored installment of the loan and
// inserts schedule, in one transaction.
func (s *Store) ReplaceInstallments(ctx context.Context, id loan.ID, schedule []loan.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM loan_installments WHERE loan_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete installments: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO loan_installments
		(loan_id, number, date, capital, interest, insurance, capital_remaining, paid, paid_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare installment insert: %w", err)
	}
	defer stmt.Close()

	for _, in := range schedule {
		if _, err := stmt.ExecContext(ctx, id, in.Number, in.Date.String(), in.Capital, in.Interest,
			in.Insurance, in.CapitalRemaining, in.Paid, nullDate(in.PaidOn)); err != nil {
			return fmt.Errorf("failed to insert installment %d: %w", in.Number, err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) MarkInstallmentPaid(ctx context.Context, id loan.ID, number int, on generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE loan_installments SET paid = 1, paid_on = ? WHERE loan_id = ? AND number = ?`,
		on.String(), id, number)
	if err != nil {
		return fmt.Errorf("failed to mark installment paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "installment", ID: fmt.Sprintf("%s#%d", id, number)}
	}
	return nil
}

func scanLoan(row rowScanner) (loan.Loan, error) {
	var (
		l     loan.Loan
		start string
	)
	err := row.Scan(&l.ID, &l.BuildingID, &l.Label, &l.Principal, &l.Rate, &l.Term, &start, &l.Type, &l.Insurance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("failed to scan loan: %w", err)
	}
	l.Start, err = generic.ParseDate(start)
	return l, err
}

// =============================================================================
// BUILDINGS (portfolio.Store interface)
// =============================================================================

func (s *Store) SaveBuilding(ctx context.Context, b portfolio.Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	localsJSON, err := json.Marshal(b.Locals)
	if err != nil {
		return fmt.Errorf("failed to encode locals: %w", err)
	}
	query := `
		INSERT INTO buildings (id, name, purchase_price, acquisition_costs, purchase_date, locals_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			purchase_price = excluded.purchase_price,
			acquisition_costs = excluded.acquisition_costs,
			purchase_date = excluded.purchase_date,
			locals_json = excluded.locals_json
	`
	_, err = s.db.ExecContext(ctx, query,
		b.ID, b.Name, b.PurchasePrice, b.AcquisitionCosts, b.PurchaseDate.String(), string(localsJSON))
	if err != nil {
		return fmt.Errorf("failed to save building: %w", err)
	}
	return nil
}

const buildingColumns = `id, name, purchase_price, acquisition_costs, purchase_date, locals_json`

func (s *Store) Building(ctx context.Context, id lease.BuildingID) (portfolio.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := scanBuilding(s.db.QueryRowContext(ctx, `SELECT `+buildingColumns+` FROM buildings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Building{}, &generic.NotFoundError{Kind: "building", ID: string(id)}
	}
	return b, err
}

func (s *Store) Buildings(ctx context.Context) ([]portfolio.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+buildingColumns+` FROM buildings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}
	defer rows.Close()

	var buildings []portfolio.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

func (s *Store) SaveEstimate(ctx context.Context, e portfolio.Estimate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO estimates (id, building_id, date, value) VALUES (?, ?, ?, ?)`,
		e.ID, e.BuildingID, e.Date.String(), e.Value)
	if err != nil {
		return fmt.Errorf("failed to save estimate: %w", err)
	}
	return nil
}

func (s *Store) Estimates(ctx context.Context, id lease.BuildingID) ([]portfolio.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, building_id, date, value FROM estimates WHERE building_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var estimates []portfolio.Estimate
	for rows.Next() {
		var (
			e    portfolio.Estimate
			date string
		)
		if err := rows.Scan(&e.ID, &e.BuildingID, &date, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		if e.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}

func (s *Store) SaveFiscalCharge(ctx context.Context, c portfolio.FiscalCharge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fiscal_charges (id, building_id, year, category, amount) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.BuildingID, c.Year, c.Category, c.Amount)
	if err != nil {
		return fmt.Errorf("failed to save fiscal charge: %w", err)
	}
	return nil
}

func (s *Store) FiscalCharges(ctx context.Context, id lease.BuildingID, year int) ([]portfolio.FiscalCharge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, building_id, year, category, amount FROM fiscal_charges
		 WHERE building_id = ? AND year = ? ORDER BY category, id`, id, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal charges: %w", err)
	}
	defer rows.Close()

	var out []portfolio.FiscalCharge
	for rows.Next() {
		var c portfolio.FiscalCharge
		if err := rows.Scan(&c.ID, &c.BuildingID, &c.Year, &c.Category, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal charge: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanBuilding(row rowScanner) (portfolio.Building, error) {
	var (
		b            portfolio.Building
		purchaseDate string
		localsJSON   string
	)
	err := row.Scan(&b.ID, &b.Name, &b.PurchasePrice, &b.AcquisitionCosts, &purchaseDate, &localsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan building: %w", err)
	}
	if b.PurchaseDate, err = generic.ParseDate(purchaseDate); err != nil {
		return b, err
	}
	if err := json.Unmarshal([]byte(localsJSON), &b.Locals); err != nil {
		return b, fmt.Errorf("failed to decode locals of building %s: %w", b.ID, err)
	}
	return b, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDate(d *generic.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanNullDate(s sql.NullString) (*generic.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := generic.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
