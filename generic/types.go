/*
Package generic provides the domain-agnostic building blocks of the lease engine.

PURPOSE:
  Every financial computation in the engine is a function of calendar days and
  decimal money. This package holds those two primitives and the error
  vocabulary shared by the lease, charges and loan packages, so that day
  counting and rounding follow one rule everywhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money helpers: decimal arithmetic with a single rounding point
  - Percentages and ratios used by proration

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 for money
  2. Late rounding: values stay unrounded until they are displayed or stored
  3. Inclusive days: a period [a, b] has b - a + 1 days

USAGE:
  share := generic.Prorate(provision, 16, 30) // 150 * 16 / 30
  stored := generic.RoundMoney(share)           // 80.00

SEE ALSO:
  - time.go: Date and calendar helpers
  - period.go: Period and Intersect
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal amounts with a single rounding rule
// =============================================================================

// MoneyPlaces is the number of decimal places of a stored or displayed amount.
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// Prorate returns amount * num / den without intermediate rounding.
// A non-positive denominator yields zero.
func Prorate(amount decimal.Decimal, num, den int) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(int64(num))).Div(decimal.NewFromInt(int64(den)))
}

// Ratio returns num / den as a decimal, zero when den <= 0.
func Ratio(num, den int) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(num)).Div(decimal.NewFromInt(int64(den)))
}

// PercentOf returns amount * pct / 100.
func PercentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Variation returns (to - from) / from * 100; zero when from is zero.
func Variation(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred)
}

// Sum adds a list of amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
