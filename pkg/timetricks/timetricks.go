package timetricks

import (
	"time"
)

const (
	dayFormat = "20060102"

	// MinutesPerDay is the length of a day on the minute clock.
	MinutesPerDay = 24 * 60
)

// SameDay reports whether t and t2 fall on the same calendar day, each read
// in its own location.
func SameDay(t time.Time, t2 time.Time) bool {
	return t.Format(dayFormat) == t2.Format(dayFormat)
}
