package lease

import (
	"sort"

	"github.com/warp/lease-engine/generic"
)

// =============================================================================
// TIMELINE - Ordered, non-overlapping tariff periods of one lease
// =============================================================================

// Timeline is the append/close-only tariff history of a lease.
// Periods are kept sorted by start date.
type Timeline struct {
	Lease   Lease
	periods []TariffPeriod
}

// NewTimeline wraps reference data loaded by the host. It does not validate;
// use Insert for writes and Audit for data-quality checks.
func NewTimeline(l Lease, periods []TariffPeriod) *Timeline {
	sorted := make([]TariffPeriod, len(periods))
	copy(sorted, periods)
	sortByStart(sorted)
	return &Timeline{Lease: l, periods: sorted}
}

// Periods returns a copy of the periods ordered by start.
func (tl *Timeline) Periods() []TariffPeriod {
	out := make([]TariffPeriod, len(tl.periods))
	copy(out, tl.periods)
	return out
}

// TariffAt returns the period whose [start, end‖+∞] contains date.
func (tl *Timeline) TariffAt(date generic.Date) (TariffPeriod, bool) {
	for _, p := range tl.periods {
		if p.Start.After(date) {
			break
		}
		if p.Covers(date) {
			return p, true
		}
	}
	return TariffPeriod{}, false
}

// MustTariffAt is TariffAt for calculations: a missing tariff is an error.
func (tl *Timeline) MustTariffAt(date generic.Date) (TariffPeriod, error) {
	p, ok := tl.TariffAt(date)
	if !ok {
		return TariffPeriod{}, &TariffNotFoundError{LeaseID: tl.Lease.ID, Date: date}
	}
	return p, nil
}

// Open returns the period without an end date, if any.
func (tl *Timeline) Open() (TariffPeriod, bool) {
	for _, p := range tl.periods {
		if p.IsOpen() {
			return p, true
		}
	}
	return TariffPeriod{}, false
}

// Overlapping returns every period intersecting [start, end], ordered by start.
func (tl *Timeline) Overlapping(start, end generic.Date) []TariffPeriod {
	window := generic.Period{Start: start, End: end}
	var out []TariffPeriod
	for _, p := range tl.periods {
		if p.Span().Overlaps(window) {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks candidate against the timeline without modifying it.
func (tl *Timeline) Validate(candidate TariffPeriod) []error {
	return Validate(tl.Lease, candidate, tl.periods)
}

// Insert validates and adds candidate. On the first violation the timeline is
// left unchanged and the violation returned.
func (tl *Timeline) Insert(candidate TariffPeriod) error {
	candidate.LeaseID = tl.Lease.ID
	if violations := tl.Validate(candidate); len(violations) > 0 {
		return violations[0]
	}
	tl.periods = append(tl.periods, candidate)
	sortByStart(tl.periods)
	return nil
}

// Close sets the end date of an open period.
func (tl *Timeline) Close(id TariffID, end generic.Date) (TariffPeriod, error) {
	for i, p := range tl.periods {
		if p.ID != id {
			continue
		}
		if !p.IsOpen() {
			return TariffPeriod{}, &InvalidTariffError{LeaseID: tl.Lease.ID, Candidate: p, Reason: "period is already closed"}
		}
		if !end.After(p.Start) {
			return TariffPeriod{}, &InvalidTariffError{LeaseID: tl.Lease.ID, Candidate: p, Reason: "end date must be after start date"}
		}
		closed := end
		tl.periods[i].End = &closed
		return tl.periods[i], nil
	}
	return TariffPeriod{}, &generic.NotFoundError{Kind: "tariff", ID: string(id)}
}

// Gaps lists holes between consecutive periods.
func (tl *Timeline) Gaps() []Gap {
	return FindGaps(tl.periods)
}

// Audit reports the continuity of the timeline from the lease start, or nil
// when every day from the lease start to the last period is covered.
func (tl *Timeline) Audit() *ContinuityWarning {
	if len(tl.periods) == 0 {
		return &ContinuityWarning{LeaseID: tl.Lease.ID, NoTariff: true}
	}
	var gaps []Gap
	if first := tl.periods[0]; first.Start.After(tl.Lease.Start) {
		end := first.Start.AddDays(-1)
		gaps = append(gaps, Gap{Start: tl.Lease.Start, End: end, Days: generic.DaysBetween(tl.Lease.Start, end) + 1})
	}
	gaps = append(gaps, FindGaps(tl.periods)...)
	if len(gaps) == 0 {
		return nil
	}
	return &ContinuityWarning{LeaseID: tl.Lease.ID, Gaps: gaps}
}

// =============================================================================
// PURE CHECKS - Usable without a Timeline (bulk import, tests)
// =============================================================================

// Validate reports every invariant the candidate would break if added to
// existing: malformed range, start before the lease, and one
// OverlapViolation per conflicting period. A period with the candidate's own
// ID is ignored so updates can be validated too.
func Validate(l Lease, candidate TariffPeriod, existing []TariffPeriod) []error {
	var violations []error
	if candidate.End != nil && !candidate.End.After(candidate.Start) {
		violations = append(violations, &InvalidTariffError{LeaseID: l.ID, Candidate: candidate, Reason: "end date must be after start date"})
	}
	if candidate.Start.Before(l.Start) {
		violations = append(violations, &InvalidTariffError{LeaseID: l.ID, Candidate: candidate, Reason: "starts before the lease (" + l.Start.String() + ")"})
	}
	span := candidate.Span()
	for _, p := range existing {
		if candidate.ID != "" && p.ID == candidate.ID {
			continue
		}
		if p.Span().Overlaps(span) {
			violations = append(violations, &OverlapViolation{LeaseID: l.ID, Candidate: candidate, Existing: p})
		}
	}
	return violations
}

// FindGaps returns the holes of at least one day between consecutive periods
// sorted by start. Neighbours that overlap (including an open period followed
// by another) are skipped: they are not gaps, and Validate already rejects
// them as OverlapViolation before they reach a stored timeline.
func FindGaps(ordered []TariffPeriod) []Gap {
	var gaps []Gap
	for i := 0; i+1 < len(ordered); i++ {
		cur, next := ordered[i], ordered[i+1]
		if cur.End == nil {
			continue
		}
		if days := generic.DaysBetween(*cur.End, next.Start) - 1; days > 0 {
			gaps = append(gaps, Gap{Start: cur.End.AddDays(1), End: next.Start.AddDays(-1), Days: days})
		}
	}
	return gaps
}

func sortByStart(periods []TariffPeriod) {
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
}
