package domain

import "time"

// DateRange is a half-open validity window [Start, End). End == nil means
// the range is open, i.e. still in effect.
type DateRange struct {
	Start time.Time
	End   *time.Time
}

// NewDateRange normalizes both bounds to day granularity in UTC.
func NewDateRange(start time.Time, end *time.Time) DateRange {
	r := DateRange{Start: TruncateToDay(start)}
	if end != nil {
		e := TruncateToDay(*end)
		r.End = &e
	}
	return r
}

// TruncateToDay drops the time-of-day component, keeping the UTC calendar day.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	y, m, d := u.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOpen reports whether the range has no end date.
func (r DateRange) IsOpen() bool {
	return r.End == nil
}

// IsValid reports whether Start precedes End when both bounds are present.
func (r DateRange) IsValid() bool {
	if r.Start.IsZero() {
		return false
	}
	if r.End == nil {
		return true
	}
	return r.Start.Before(*r.End)
}

// Contains reports whether t falls inside [Start, End).
func (r DateRange) Contains(t time.Time) bool {
	day := TruncateToDay(t)
	if day.Before(r.Start) {
		return false
	}
	if r.End == nil {
		return true
	}
	return day.Before(*r.End)
}

// Overlaps reports whether two ranges intersect. Open ends extend to infinity,
// so two open ranges always overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	if other.End != nil && !r.Start.Before(*other.End) {
		return false
	}
	if r.End != nil && !other.Start.Before(*r.End) {
		return false
	}
	return true
}
