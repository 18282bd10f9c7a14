package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date (every lease computation is per day)
// =============================================================================

// Date is a calendar day in UTC. The zero value is "no date".
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for fixtures and constants.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MaxDate stands in for an open end ("+∞") in interval arithmetic.
var MaxDate = NewDate(9999, time.December, 31)

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// AddMonths moves n calendar months, clamping the day to the target month's
// last day (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date { return StartOfMonth(d.Year(), d.Month()) }

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date { return EndOfMonth(d.Year(), d.Month()) }

// Min returns the earlier of two dates.
func Min(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of two dates.
func Max(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the signed number of days from "from" to "to".
func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

// MonthsBetween counts whole calendar months elapsed from "from" to "to".
// A month counts once its clamped anniversary is reached, so Jan 31 -> Feb 28
// is one month and Jan 15 -> Feb 14 is zero.
func MonthsBetween(from, to Date) int {
	if to.Before(from) {
		return -MonthsBetween(to, from)
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if months > 0 && from.AddMonths(months).After(to) {
		months--
	}
	return months
}

func StartOfYear(year int) Date                    { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date                      { return NewDate(year, time.December, 31) }
func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// DaysInMonth returns the length of a calendar month.
func DaysInMonth(year int, month time.Month) int { return EndOfMonth(year, month).Day() }

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int { return DaysBetween(StartOfYear(year), StartOfYear(year+1)) }
