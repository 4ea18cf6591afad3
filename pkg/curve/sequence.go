package curve

import (
	"fmt"

	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

const day = timetricks.MinutesPerDay

// Step is one sampling point inside a segment.
type Step struct {
	// Z is the minute on the segment's continuous axis, measured from
	// midnight of the left anchor's date.
	Z int
	// Time is Z on the 24 hour clock.
	Time timetricks.TimeOfDay
	// DayOffset is the number of midnights crossed up to and including this
	// step.
	DayOffset int
	// Phase is AfterRollover once the segment has crossed a midnight.
	Phase Phase
}

// Phase records whether a step falls before or after the segment's
// midnight.
type Phase int

const (
	BeforeRollover Phase = iota
	AfterRollover
)

func (p Phase) String() string {
	if p == BeforeRollover {
		return "BEFORE_ROLLOVER"
	}
	return "AFTER_ROLLOVER"
}

// Segment is the span between two consecutive anchors.
type Segment struct {
	// Start is the left anchor's minute, End is the right anchor's minute
	// on the same continuous axis (End > Start).
	Start, End int
	Interval   int
}

// NewSegment builds the segment from x to y, where days is the number of
// calendar days between the anchors' dates. When the right anchor is not
// later than the left on the continuous axis it is taken to be on the
// following day, so NewSegment(x, y, 0, n) with y <= x still spans midnight.
func NewSegment(x, y timetricks.TimeOfDay, days, interval int) (Segment, error) {
	if interval <= 0 || interval > day {
		return Segment{}, fmt.Errorf("sampling interval %d outside [1, %d]", interval, day)
	}
	if days < 0 {
		return Segment{}, fmt.Errorf("right anchor %d days before left anchor", -days)
	}
	end := y.Minutes() + days*day
	if end <= x.Minutes() {
		end += day
	}
	return Segment{
		Start:    x.Minutes(),
		End:      end,
		Interval: interval,
	}, nil
}

// First returns the first sampling minute, the smallest multiple of the
// interval strictly after Start.
func (s Segment) First() int {
	return (s.Start/s.Interval + 1) * s.Interval
}

// Steps lists the sampling points strictly between the anchors. Every segment
// starts in BeforeRollover. The first step at or past a multiple of 1440
// moves it to AfterRollover: its clock restarts at 00:00 and the day offset
// advances, once per midnight crossed.
func (s Segment) Steps() []Step {
	var (
		steps     []Step
		phase     = BeforeRollover
		rollovers = 0
	)
	for z := s.First(); z < s.End; z += s.Interval {
		if z >= (rollovers+1)*day {
			phase = AfterRollover
			rollovers = z / day
		}
		steps = append(steps, Step{
			Z:         z,
			Time:      timetricks.MinutesToTime(z),
			DayOffset: rollovers,
			Phase:     phase,
		})
	}
	return steps
}

// Zs returns the continuous minute of every step.
func Zs(steps []Step) []int {
	zs := make([]int, len(steps))
	for i, st := range steps {
		zs[i] = st.Z
	}
	return zs
}
