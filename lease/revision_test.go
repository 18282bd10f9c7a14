package lease_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
	"github.com/warp/lease-engine/store/memory"
)

var now = time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)

func indexed(p lease.TariffPeriod, index string) lease.TariffPeriod {
	idx := dec(index)
	p.Index = &idx
	return p
}

// =============================================================================
// REVISE
// =============================================================================

func TestRevise_UsesCurrentTariffIndex(t *testing.T) {
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		indexed(tariff("t1", "2023-01-01", nil, "1000", "100"), "100"),
	})

	rev, err := lease.Revise(tl, day("2024-01-01"), dec("104"), nil)

	require.NoError(t, err)
	assert.Equal(t, "1000.00", rev.OldRent.StringFixed(2))
	assert.Equal(t, "1040.00", rev.NewRent.StringFixed(2))
	assert.Equal(t, "4.00", rev.VariationPct.StringFixed(2))
	assert.True(t, rev.OldIndex.Equal(dec("100")))
	assert.Equal(t, lease.TariffID("t1"), rev.Base.ID)
}

func TestRevise_ExplicitOldIndexWins(t *testing.T) {
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		indexed(tariff("t1", "2023-01-01", nil, "850", "60"), "130.69"),
	})
	old := dec("131.12")

	rev, err := lease.Revise(tl, day("2024-01-01"), dec("136.27"), &old)

	require.NoError(t, err)
	// 850 * 136.27 / 131.12 = 883.386...
	assert.Equal(t, "883.39", rev.NewRent.StringFixed(2))
}

func TestRevise_ConfigurationErrors(t *testing.T) {
	noIndex := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		tariff("t1", "2023-01-01", nil, "1000", "100"),
	})
	_, err := lease.Revise(noIndex, day("2024-01-01"), dec("104"), nil)
	assert.True(t, generic.IsConfigKind(err, generic.KindMissingIndex))

	zero := decimal.Zero
	_, err = lease.Revise(noIndex, day("2024-01-01"), dec("104"), &zero)
	assert.True(t, generic.IsConfigKind(err, generic.KindInvalidIndex))
	assert.True(t, errors.Is(err, generic.ErrConfiguration))

	_, err = lease.Revise(noIndex, day("2022-06-01"), dec("104"), nil)
	assert.True(t, errors.Is(err, generic.ErrTariffNotFound))
}

// =============================================================================
// TARIFF CHANGE (atomic close + open)
// =============================================================================

func seedStore(t *testing.T, periods ...lease.TariffPeriod) *memory.Memory {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.SaveLease(ctx, testLease("2023-01-01")))
	for _, p := range periods {
		require.NoError(t, store.InsertTariff(ctx, p))
	}
	return store
}

func TestTariffChange_ClosesAndOpens(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, indexed(tariff("t1", "2023-01-01", nil, "1000", "100"), "100"))
	tl, err := lease.LoadTimeline(ctx, store, "L1")
	require.NoError(t, err)

	rev, err := lease.Revise(tl, day("2024-01-01"), dec("104"), nil)
	require.NoError(t, err)

	next, err := rev.Change(day("2024-01-01"), "T3 2023", "annual revision").Apply(ctx, store, now)
	require.NoError(t, err)

	periods, err := store.Tariffs(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.True(t, periods[0].End.Equal(day("2023-12-31")))
	assert.Equal(t, next.ID, periods[1].ID)
	assert.True(t, periods[1].IsOpen())
	assert.Equal(t, "1040.00", periods[1].Rent.StringFixed(2))
	assert.True(t, periods[1].Charges.Equal(dec("100")), "charges carried over")
	assert.Equal(t, "T3 2023", periods[1].IndexPeriod)

	reloaded, err := lease.LoadTimeline(ctx, store, "L1")
	require.NoError(t, err)
	assert.Nil(t, reloaded.Audit(), "no gap after a revision")
}

func TestTariffChange_BeforeOpenPeriodRejected(t *testing.T) {
	// GIVEN: a closed period followed by an open one starting 2024-01-01
	ctx := context.Background()
	store := seedStore(t,
		tariff("t1", "2023-01-01", datePtr("2023-12-31"), "1000", "100"),
		tariff("t2", "2024-01-01", nil, "1040", "100"),
	)

	// WHEN: applying a change dated before the open period started
	change := lease.TariffChange{LeaseID: "L1", ApplyOn: day("2023-06-01"), Rent: dec("1100"), Charges: dec("100")}
	_, err := change.Apply(ctx, store, now)

	// THEN: the change fails and t2 is still open
	require.Error(t, err)
	periods, err := store.Tariffs(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.True(t, periods[1].IsOpen())
}

func TestTariffChange_InsertFailureRollsBackClose(t *testing.T) {
	// GIVEN: legacy data where a closed period sits after the open one
	ctx := context.Background()
	store := seedStore(t,
		tariff("t1", "2023-01-01", datePtr("2023-06-30"), "1000", "100"),
		tariff("t2", "2023-07-01", nil, "1000", "100"),
		tariff("t3", "2023-10-01", datePtr("2023-12-31"), "1000", "100"),
	)

	// WHEN: closing t2 succeeds but the new open period collides with t3
	change := lease.TariffChange{LeaseID: "L1", ApplyOn: day("2023-09-01"), Rent: dec("1100"), Charges: dec("100")}
	_, err := change.Apply(ctx, store, now)

	// THEN: OverlapViolation, and the close of t2 is rolled back
	require.True(t, errors.Is(err, generic.ErrOverlap), "err = %v", err)
	periods, err := store.Tariffs(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, lease.TariffID("t2"), periods[1].ID)
	assert.True(t, periods[1].IsOpen(), "close must be rolled back")
}

func TestAddTariff_ValidatesAgainstStore(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, tariff("t1", "2023-01-01", nil, "1000", "100"))

	_, err := lease.AddTariff(ctx, store, tariff("", "2023-05-01", nil, "1000", "100"), now)
	assert.True(t, errors.Is(err, generic.ErrOverlap))

	_, err = lease.AddTariff(ctx, store, lease.TariffPeriod{LeaseID: "missing", Start: day("2023-01-01")}, now)
	assert.True(t, generic.IsNotFound(err))

	periods, err := store.Tariffs(ctx, "L1")
	require.NoError(t, err)
	assert.Len(t, periods, 1)
}
