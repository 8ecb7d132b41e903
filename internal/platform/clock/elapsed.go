package clock

import (
	"math"
	"time"
)

// MinutesSince returns fractional minutes elapsed from ref to now.
// A zero ref yields 0 so callers can treat "never recorded" as "no time passed".
func MinutesSince(ref, now time.Time) float64 {
	if ref.IsZero() {
		return 0
	}
	return now.Sub(ref).Minutes()
}

// WholeMinutesSince floors MinutesSince, clamped at zero.
func WholeMinutesSince(ref, now time.Time) int {
	m := math.Floor(MinutesSince(ref, now))
	if m < 0 {
		return 0
	}
	return int(m)
}

func SecondsBetween(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	s := int(math.Round(end.Sub(start).Seconds()))
	if s < 0 {
		return 0
	}
	return s
}
