package lease_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lease-engine/generic"
	"github.com/warp/lease-engine/lease"
)

func newCalculator() *lease.ProvisionCalculator {
	return lease.NewProvisionCalculator(zerolog.Nop())
}

func TestProvisionsDue_FullMonth(t *testing.T) {
	// GIVEN: a single open tariff (rent 1000, charges 100) from 2023-01-01
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		tariff("t1", "2023-01-01", nil, "1000", "100"),
	})

	// WHEN
	got, err := newCalculator().Due(tl, day("2023-01-01"), day("2023-01-31"))

	// THEN: exactly the provision, no drift
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.Rounded().StringFixed(2))
	assert.True(t, got.Total.Equal(dec("100")))
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].Full())
}

func TestProvisionsDue_PartialMonth(t *testing.T) {
	// GIVEN: tenant present 2023-06-15..2023-06-30 under a 150 provision
	l := testLease("2023-06-15")
	tl := lease.NewTimeline(l, []lease.TariffPeriod{
		tariff("t1", "2023-06-01", nil, "800", "150"),
	})

	// WHEN
	got, err := newCalculator().Due(tl, day("2023-06-01"), day("2023-06-30"))

	// THEN: 150 * 16 / 30
	require.NoError(t, err)
	assert.Equal(t, "80.00", got.Rounded().StringFixed(2))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 16, got.Lines[0].DaysPresent)
	assert.Equal(t, 30, got.Lines[0].DaysInMonth)
	assert.Contains(t, got.Lines[0].String(), "16/30")
}

func TestProvisionsDue_TariffResolvedOnFirstOfMonth(t *testing.T) {
	// GIVEN: the tariff changes on the 15th; the month is billed at the rate of the 1st
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		tariff("t1", "2023-01-01", datePtr("2023-03-14"), "1000", "100"),
		tariff("t2", "2023-03-15", nil, "1000", "200"),
	})

	got, err := newCalculator().Due(tl, day("2023-03-01"), day("2023-04-30"))

	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, lease.TariffID("t1"), got.Lines[0].TariffID)
	assert.Equal(t, lease.TariffID("t2"), got.Lines[1].TariffID)
	assert.Equal(t, "300.00", got.Rounded().StringFixed(2))
}

func TestProvisionsDue_MissingTariffAborts(t *testing.T) {
	// GIVEN: no tariff covers May
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		tariff("t1", "2023-01-01", datePtr("2023-04-30"), "1000", "100"),
		tariff("t2", "2023-06-01", nil, "1000", "100"),
	})

	_, err := newCalculator().Due(tl, day("2023-01-01"), day("2023-12-31"))

	var notFound *lease.TariffNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, notFound.Date.Equal(day("2023-05-01")))
	assert.True(t, errors.Is(err, generic.ErrTariffNotFound))
}

func TestProvisionsDue_NoOccupancy(t *testing.T) {
	l := testLease("2024-01-01")
	tl := lease.NewTimeline(l, []lease.TariffPeriod{tariff("t1", "2024-01-01", nil, "1000", "100")})

	got, err := newCalculator().Due(tl, day("2023-01-01"), day("2023-12-31"))

	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
	assert.Empty(t, got.Lines)
	assert.NotEmpty(t, got.Note)
	assert.Nil(t, got.Occupancy)
}

func TestProvisionsDue_ClippedToLeaseEnd(t *testing.T) {
	l := testLease("2023-01-01")
	l.End = datePtr("2023-02-14")
	tl := lease.NewTimeline(l, []lease.TariffPeriod{tariff("t1", "2023-01-01", nil, "1000", "112")})

	got, err := newCalculator().Due(tl, day("2023-01-01"), day("2023-12-31"))

	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	// 112 + 112 * 14 / 28
	assert.Equal(t, "168.00", got.Rounded().StringFixed(2))
}

func TestProvisionsDue_AdditiveOverContiguousRanges(t *testing.T) {
	tl := lease.NewTimeline(testLease("2023-01-01"), []lease.TariffPeriod{
		tariff("t1", "2023-01-01", nil, "1000", "97.30"),
	})
	calc := newCalculator()
	a, c := day("2023-01-10"), day("2023-11-20")

	whole, err := calc.Due(tl, a, c)
	require.NoError(t, err)

	for b := a; b.Before(c); b = b.AddDays(17) {
		left, err := calc.Due(tl, a, b)
		require.NoError(t, err)
		right, err := calc.Due(tl, b.AddDays(1), c)
		require.NoError(t, err)

		sum := left.Total.Add(right.Total)
		assert.True(t, sum.Sub(whole.Total).Abs().LessThan(dec("0.000001")),
			"split at %s: %s + %s != %s", b, left.Total, right.Total, whole.Total)
	}
}
