package lease_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lease-engine/lease"
)

func TestRentProrata_Monthly(t *testing.T) {
	tl := lease.NewTimeline(testLease("2023-06-15"), []lease.TariffPeriod{
		tariff("t1", "2023-06-15", nil, "900", "100"),
	})

	got, err := lease.RentProrata(tl, day("2023-06-15"), day("2023-06-30"))

	require.NoError(t, err)
	assert.Equal(t, 16, got.DaysPresent)
	assert.Equal(t, 30, got.DaysInPeriod)
	assert.Equal(t, "480.00", got.Amount.StringFixed(2))
}

func TestRentProrata_Quarterly(t *testing.T) {
	l := testLease("2023-05-01")
	l.Frequency = lease.Quarterly
	tl := lease.NewTimeline(l, []lease.TariffPeriod{tariff("t1", "2023-05-01", nil, "2730", "300")})

	got, err := lease.RentProrata(tl, day("2023-05-01"), day("2023-06-30"))

	require.NoError(t, err)
	assert.Equal(t, 91, got.DaysInPeriod)
	assert.Equal(t, 61, got.DaysPresent)
	// 2730 * 61 / 91
	assert.Equal(t, "1830.00", got.Amount.StringFixed(2))
}

func TestAmountDue_WithVAT(t *testing.T) {
	l := testLease("2023-01-01")
	l.SubjectVAT = true
	tl := lease.NewTimeline(l, []lease.TariffPeriod{{
		ID: "t1", LeaseID: "L1", Start: day("2023-01-01"),
		Rent: dec("1000"), Charges: dec("100"), Taxes: dec("20"),
	}})

	due, err := lease.AmountDue(tl, day("2023-03-01"))

	require.NoError(t, err)
	assert.Equal(t, "220.00", due.VAT.StringFixed(2), "20% of rent + charges")
	assert.Equal(t, "1340.00", due.Total.StringFixed(2))
	assert.True(t, due.Period.End.Equal(day("2023-03-31")))
}

func TestAmountDue_NoVATAndQuarterly(t *testing.T) {
	l := testLease("2023-01-01")
	l.Frequency = lease.Quarterly
	tl := lease.NewTimeline(l, []lease.TariffPeriod{tariff("t1", "2023-01-01", nil, "3000", "300")})

	due, err := lease.AmountDue(tl, day("2023-04-01"))

	require.NoError(t, err)
	assert.True(t, due.VAT.IsZero())
	assert.Equal(t, "3300.00", due.Total.StringFixed(2))
	assert.True(t, due.Period.End.Equal(day("2023-06-30")))
}

func TestFinalSettlement(t *testing.T) {
	tl := lease.NewTimeline(testLease("2022-01-01"), []lease.TariffPeriod{
		tariff("t1", "2022-01-01", nil, "930", "100"),
	})

	t.Run("rent unpaid: prorated rent is owed", func(t *testing.T) {
		got, err := lease.FinalSettlement(tl, day("2023-03-10"), false, dec("150"))
		require.NoError(t, err)
		// 930 * 10 / 31 = 300
		assert.Equal(t, "-300.00", got.RentImpact.StringFixed(2))
		assert.Equal(t, "550.00", got.Final.StringFixed(2))
	})

	t.Run("rent paid: unused days refunded", func(t *testing.T) {
		got, err := lease.FinalSettlement(tl, day("2023-03-10"), true, dec("0"))
		require.NoError(t, err)
		assert.Equal(t, "630.00", got.RentImpact.StringFixed(2))
		assert.Equal(t, "1630.00", got.Final.StringFixed(2))
	})
}

func TestBillingPeriods(t *testing.T) {
	l := testLease("2023-01-15")

	periods := lease.BillingPeriods(l, day("2023-04-02"))

	require.Len(t, periods, 4)
	assert.True(t, periods[0].Start.Equal(day("2023-04-01")), "most recent first")
	assert.True(t, periods[3].Start.Equal(day("2023-01-01")))

	end := day("2023-02-10")
	l.End = &end
	assert.Len(t, lease.BillingPeriods(l, day("2023-12-31")), 2)
}
