package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
)

// =============================================================================
// RENT REVISION - Index-based rent update (IRL/ILC)
// =============================================================================

// Revision is the outcome of Revise. It does not touch the lease.
type Revision struct {
	LeaseID      ID
	AsOf         generic.Date
	Base         TariffPeriod // tariff active at AsOf
	OldRent      decimal.Decimal
	NewRent      decimal.Decimal
	VariationPct decimal.Decimal
	OldIndex     decimal.Decimal
	NewIndex     decimal.Decimal
}

// Revise computes newRent = oldRent * newIndex / oldIndex for the tariff active
// at asOf. oldIndex defaults to that tariff's reference index.
func Revise(tl *Timeline, asOf generic.Date, newIndex decimal.Decimal, oldIndex *decimal.Decimal) (Revision, error) {
	base, err := tl.MustTariffAt(asOf)
	if err != nil {
		return Revision{}, err
	}

	subject := "lease:" + string(tl.Lease.ID)
	var old decimal.Decimal
	switch {
	case oldIndex != nil:
		old = *oldIndex
	case base.Index != nil:
		old = *base.Index
	default:
		return Revision{}, &generic.ConfigurationError{Kind: generic.KindMissingIndex, Subject: subject,
			Detail: "no reference index given and tariff " + string(base.ID) + " has none"}
	}
	if !old.IsPositive() {
		return Revision{}, &generic.ConfigurationError{Kind: generic.KindInvalidIndex, Subject: subject,
			Detail: "old index must be positive, got " + old.String()}
	}
	if !newIndex.IsPositive() {
		return Revision{}, &generic.ConfigurationError{Kind: generic.KindInvalidIndex, Subject: subject,
			Detail: "new index must be positive, got " + newIndex.String()}
	}

	newRent := generic.RoundMoney(base.Rent.Mul(newIndex).Div(old))
	return Revision{
		LeaseID:      tl.Lease.ID,
		AsOf:         asOf,
		Base:         base,
		OldRent:      base.Rent,
		NewRent:      newRent,
		VariationPct: generic.RoundMoney(generic.Variation(base.Rent, newRent)),
		OldIndex:     old,
		NewIndex:     newIndex,
	}, nil
}

// Change builds the command that applies the revision on applyOn. Charges and
// taxes are carried over from the base tariff.
func (r Revision) Change(applyOn generic.Date, indexPeriod, reason string) TariffChange {
	idx := r.NewIndex
	return TariffChange{
		LeaseID:     r.LeaseID,
		ApplyOn:     applyOn,
		Rent:        r.NewRent,
		Charges:     r.Base.Charges,
		Taxes:       r.Base.Taxes,
		Index:       &idx,
		IndexPeriod: indexPeriod,
		Reason:      reason,
	}
}

// =============================================================================
// TARIFF CHANGE - Close the current period and open the next, atomically
// =============================================================================

// TariffChange replaces the open tariff of a lease from ApplyOn onward.
type TariffChange struct {
	LeaseID     ID
	ApplyOn     generic.Date
	Rent        decimal.Decimal
	Charges     decimal.Decimal
	Taxes       decimal.Decimal
	Index       *decimal.Decimal
	IndexPeriod string
	Reason      string
}

// Apply closes the open period on ApplyOn - 1 day and inserts a new open
// period starting on ApplyOn, in one transaction. Both writes succeed or
// neither does.
func (c TariffChange) Apply(ctx context.Context, s TxStore, now time.Time) (TariffPeriod, error) {
	next := TariffPeriod{
		ID:          TariffID(uuid.NewString()),
		LeaseID:     c.LeaseID,
		Start:       c.ApplyOn,
		Rent:        c.Rent,
		Charges:     c.Charges,
		Taxes:       c.Taxes,
		Index:       c.Index,
		IndexPeriod: c.IndexPeriod,
		Reason:      c.Reason,
		CreatedAt:   now.UTC(),
	}

	err := s.WithTx(ctx, func(tx Store) error {
		tl, err := LoadTimeline(ctx, tx, c.LeaseID)
		if err != nil {
			return err
		}
		if open, ok := tl.Open(); ok {
			end := c.ApplyOn.AddDays(-1)
			if _, err := tl.Close(open.ID, end); err != nil {
				return err
			}
			if err := tx.CloseTariff(ctx, open.ID, end); err != nil {
				return err
			}
		}
		if err := tl.Insert(next); err != nil {
			return err
		}
		return tx.InsertTariff(ctx, next)
	})
	if err != nil {
		return TariffPeriod{}, err
	}
	return next, nil
}
