package timetricks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Accepted wall clock layouts, tried in order.
var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
}

// InvalidTimeFormatError is returned when a time string matches none of the
// accepted layouts.
type InvalidTimeFormatError struct {
	Input string
}

func (e *InvalidTimeFormatError) Error() string {
	return fmt.Sprintf("invalid time format %q: want HH:MM, HH:MM:SS or h:MM AM/PM", e.Input)
}

// TimeOfDay is a wall clock reading with minute resolution, stored as minutes
// since midnight in [0, 1439]. It carries no date.
type TimeOfDay int

var _ json.Marshaler = TimeOfDay(0)
var _ json.Unmarshaler = new(TimeOfDay)

// ParseTimeOfDay parses HH:MM, HH:MM:SS or h:MM AM/PM. Seconds are truncated.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, in)
		if err != nil {
			continue
		}
		return Clock(t.Hour(), t.Minute()), nil
	}
	return 0, &InvalidTimeFormatError{Input: s}
}

// Clock builds a TimeOfDay from an hour and minute. Out of range values wrap
// around the day.
func Clock(hour, minute int) TimeOfDay {
	return MinutesToTime(hour*60 + minute)
}

// MinutesToTime maps any minute count onto the 24 hour clock. It does not
// report how many days were crossed.
func MinutesToTime(m int) TimeOfDay {
	return TimeOfDay(((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay)
}

// RoundUpToHour returns t if it is already on the hour and the next whole hour
// otherwise. 23:xx rounds to 00:00; callers that care about the wrap compare
// Hour() before and after.
func RoundUpToHour(t TimeOfDay) TimeOfDay {
	if t.Minute() == 0 {
		return t
	}
	return Clock(t.Hour()+1, 0)
}

// Minutes returns the minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("time of day %q not a string: %w", buf, err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
