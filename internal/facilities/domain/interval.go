package domain

import (
	"fmt"
	"time"
)

// TimeRange is a half-open window [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Precision is the resolution windows are stored at. Both stores keep
// microseconds, so bounds are truncated before validation.
const Precision = time.Microsecond

// NewTimeRange validates and builds a window. Bounds are truncated to
// Precision and End must then be strictly after Start.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	start, end = start.Truncate(Precision), end.Truncate(Precision)
	if !end.After(start) {
		return TimeRange{}, ErrInvalidInterval
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Windows that merely touch (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Overlaps checks if two time ranges overlap.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return Overlaps(t.Start, t.End, other.Start, other.End)
}

// Contains reports whether at falls inside the window.
func (t TimeRange) Contains(at time.Time) bool {
	return !at.Before(t.Start) && at.Before(t.End)
}

// Duration returns the length of the window.
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// UTC returns the window with both bounds converted to UTC.
func (t TimeRange) UTC() TimeRange {
	return TimeRange{Start: t.Start.UTC(), End: t.End.UTC()}
}

func (t TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", t.Start.Format(time.RFC3339), t.End.Format(time.RFC3339))
}
