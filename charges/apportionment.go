/*
Package charges reconciles the charges provisions billed to a tenant against
the real costs of the building.

KEY CONCEPTS:
  - Key: a named apportionment key (fixed shares or metered consumption)
  - Share: a local's weight under a SHARES key
  - Ledger: the keys and shares of a building, answering allocation queries
  - Expense, MeterReading, Adjustment: the three sources of real cost
  - Engine.Settle: one regularization run, producing a Record and a trail

PROPAGATION:
  A missing tariff aborts the settlement before anything is stored.
  A misconfigured line (no key, zero shares, no unit price) is skipped with a
  warning and the rest of the settlement completes.

SEE ALSO:
  - lease/provision.go: provisions billed, the other side of the balance
  - generic/period.go: Intersect, the basis of every day count
*/
package charges

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

// KeyID identifies an apportionment key.
type KeyID string

// KeyMode says how a key splits costs.
type KeyMode string

const (
	// ModeShares splits an amount by relative weights.
	ModeShares KeyMode = "SHARES"
	// ModeMeter bills consumed units at a unit price.
	ModeMeter KeyMode = "METER"
)

// Key is a named cost category of a building.
type Key struct {
	ID         KeyID
	BuildingID lease.BuildingID
	Name       string
	Mode       KeyMode
	UnitPrice  *decimal.Decimal // METER keys only
}

// Share is the weight of one local under one key.
type Share struct {
	KeyID   KeyID
	LocalID lease.LocalID
	Weight  decimal.Decimal
}

// =============================================================================
// LEDGER - Keys and shares of a building
// =============================================================================

// Ledger answers share and allocation queries. Build it with NewLedger.
type Ledger struct {
	keys   map[KeyID]Key
	shares map[KeyID]map[lease.LocalID]decimal.Decimal
	totals map[KeyID]decimal.Decimal
}

// NewLedger indexes keys and shares. A share for an unknown key or a second
// share for the same (key, local) is a configuration error.
func NewLedger(keys []Key, shares []Share) (*Ledger, error) {
	l := &Ledger{
		keys:   make(map[KeyID]Key, len(keys)),
		shares: make(map[KeyID]map[lease.LocalID]decimal.Decimal),
		totals: make(map[KeyID]decimal.Decimal),
	}
	for _, k := range keys {
		l.keys[k.ID] = k
		l.totals[k.ID] = decimal.Zero
	}
	for _, s := range shares {
		if _, ok := l.keys[s.KeyID]; !ok {
			return nil, &generic.ConfigurationError{Kind: generic.KindUnknownKey, Subject: "key:" + string(s.KeyID),
				Detail: "share for local " + string(s.LocalID) + " references an unknown key"}
		}
		byLocal := l.shares[s.KeyID]
		if byLocal == nil {
			byLocal = make(map[lease.LocalID]decimal.Decimal)
			l.shares[s.KeyID] = byLocal
		}
		if _, dup := byLocal[s.LocalID]; dup {
			return nil, &generic.ConfigurationError{Kind: generic.KindDuplicateShare, Subject: "key:" + string(s.KeyID),
				Detail: "local " + string(s.LocalID) + " has two shares"}
		}
		byLocal[s.LocalID] = s.Weight
		l.totals[s.KeyID] = l.totals[s.KeyID].Add(s.Weight)
	}
	return l, nil
}

// Key returns a key by ID.
func (l *Ledger) Key(id KeyID) (Key, bool) {
	k, ok := l.keys[id]
	return k, ok
}

// Keys returns every key sorted by name.
func (l *Ledger) Keys() []Key {
	out := make([]Key, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ShareOf returns the weight of local under key.
func (l *Ledger) ShareOf(key KeyID, local lease.LocalID) (decimal.Decimal, bool) {
	w, ok := l.shares[key][local]
	return w, ok
}

// TotalShares is the sum of every weight under key.
func (l *Ledger) TotalShares(key KeyID) decimal.Decimal {
	return l.totals[key]
}

// TheoreticalAllocation returns amount * share / total shares. A local without
// a share gets zero. A zero total is a KindDivisionByZero configuration error.
func (l *Ledger) TheoreticalAllocation(key KeyID, local lease.LocalID, amount decimal.Decimal) (decimal.Decimal, error) {
	if _, ok := l.keys[key]; !ok {
		return decimal.Zero, &generic.ConfigurationError{Kind: generic.KindUnknownKey, Subject: "key:" + string(key)}
	}
	total := l.TotalShares(key)
	if total.IsZero() {
		return decimal.Zero, &generic.ConfigurationError{Kind: generic.KindDivisionByZero, Subject: "key:" + string(key),
			Detail: "total shares is zero"}
	}
	share, ok := l.ShareOf(key, local)
	if !ok {
		return decimal.Zero, nil
	}
	return amount.Mul(share).Div(total), nil
}
