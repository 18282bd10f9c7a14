package generic

import "time"

// =============================================================================
// PERIOD - Inclusive day interval, the unit of every proration
// =============================================================================

// Period is the closed interval [Start, End] of calendar days.
//
// Examples:
//   - Occupancy window: lease start clipped to a regularization range
//   - Service period of an expense: Jan 1 - Dec 31
//   - Calendar month used by the provision walk
type Period struct {
	Start Date
	End   Date
}

// NewPeriod builds a period and rejects End before Start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// OpenPeriod builds a period with an optional end; nil means "until further
// notice" and is represented by MaxDate.
func OpenPeriod(start Date, end *Date) Period {
	if end == nil {
		return Period{Start: start, End: MaxDate}
	}
	return Period{Start: start, End: *end}
}

// MonthPeriod returns the calendar month [1st, last day].
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// YearPeriod returns the calendar year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// IsEmpty reports an inverted period.
func (p Period) IsEmpty() bool { return p.End.Before(p.Start) }

// Days returns the inclusive length in days; 0 for an empty period.
func (p Period) Days() int {
	if p.IsEmpty() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.End.Before(other.Start) && !other.End.Before(p.Start)
}

// Months returns every calendar month touched by the period, in order.
func (p Period) Months() []Period {
	if p.IsEmpty() {
		return nil
	}
	var months []Period
	for m := p.Start.FirstOfMonth(); !m.After(p.End); m = m.AddMonths(1) {
		months = append(months, MonthPeriod(m.Year(), m.Month()))
	}
	return months
}

// String returns a string representation of the period.
func (p Period) String() string {
	end := p.End.String()
	if p.End.Equal(MaxDate) {
		end = "∞"
	}
	return "[" + p.Start.String() + ", " + end + "]"
}

// Intersect returns the common part of all periods, or false when they are
// disjoint. Every day-counting rule in the engine is built on it.
func Intersect(first Period, rest ...Period) (Period, bool) {
	out := first
	for _, p := range rest {
		out = Period{Start: Max(out.Start, p.Start), End: Min(out.End, p.End)}
	}
	if out.IsEmpty() {
		return Period{}, false
	}
	return out, true
}

// OverlapDays is the length of the intersection, 0 when disjoint.
func OverlapDays(first Period, rest ...Period) int {
	p, ok := Intersect(first, rest...)
	if !ok {
		return 0
	}
	return p.Days()
}

// =============================================================================
// BILLING PERIODS - Month or calendar quarter containing a date
// =============================================================================

// QuarterPeriod returns the calendar quarter containing d.
func QuarterPeriod(d Date) Period {
	firstMonth := time.Month((int(d.Month())-1)/3*3 + 1)
	start := StartOfMonth(d.Year(), firstMonth)
	return Period{Start: start, End: start.AddMonths(2).LastOfMonth()}
}
