package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/lease-engine/generic"
)

// =============================================================================
// STORE INTERFACES - Implemented by the host (store/memory, store/sqlite)
// =============================================================================

// Store persists leases and their tariff history.
//
// Tariff rows are append/close only: a period is inserted once, and later
// only its end date may be set. Implementations return a
// *generic.NotFoundError for unknown IDs.
type Store interface {
	// SaveLease inserts or replaces a lease.
	SaveLease(ctx context.Context, l Lease) error

	// Lease returns one lease.
	Lease(ctx context.Context, id ID) (Lease, error)

	// Leases returns every lease, ordered by ID.
	Leases(ctx context.Context) ([]Lease, error)

	// Tariffs returns the tariff periods of a lease ordered by start date.
	Tariffs(ctx context.Context, id ID) ([]TariffPeriod, error)

	// InsertTariff appends a period.
	InsertTariff(ctx context.Context, p TariffPeriod) error

	// CloseTariff sets the end date of an open period.
	CloseTariff(ctx context.Context, id TariffID, end generic.Date) error
}

// TxStore runs several writes as one atomic unit.
type TxStore interface {
	Store
	// WithTx executes fn within a transaction. If fn returns an error, every
	// write made through the Store passed to fn is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// LoadTimeline reads a lease and its tariffs.
func LoadTimeline(ctx context.Context, s Store, id ID) (*Timeline, error) {
	l, err := s.Lease(ctx, id)
	if err != nil {
		return nil, err
	}
	periods, err := s.Tariffs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tariffs of lease %s: %w", id, err)
	}
	return NewTimeline(l, periods), nil
}

// AddTariff validates candidate against the stored timeline and appends it.
// ID and CreatedAt are assigned when empty.
func AddTariff(ctx context.Context, s TxStore, candidate TariffPeriod, now time.Time) (TariffPeriod, error) {
	if candidate.ID == "" {
		candidate.ID = TariffID(uuid.NewString())
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = now.UTC()
	}
	err := s.WithTx(ctx, func(tx Store) error {
		tl, err := LoadTimeline(ctx, tx, candidate.LeaseID)
		if err != nil {
			return err
		}
		if err := tl.Insert(candidate); err != nil {
			return err
		}
		return tx.InsertTariff(ctx, candidate)
	})
	if err != nil {
		return TariffPeriod{}, err
	}
	return candidate, nil
}
