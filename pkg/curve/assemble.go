package curve

import (
	"errors"
	"fmt"

	"github.com/spencer-p/tidegraph/pkg/tides"
)

// DefaultInterval is the sampling interval in minutes.
const DefaultInterval = 60

// ErrNoData is returned when a location has no tide events at all. Callers
// treat it as a status rather than a failure.
var ErrNoData = errors.New("no tide events")

// InsufficientDataError is returned when fewer than two anchors are
// available, so there is nothing to interpolate between.
type InsufficientDataError struct {
	LocationID int64
	Anchors    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("location %d: need at least 2 tide events to build a curve, have %d", e.LocationID, e.Anchors)
}

// Options configures Assemble.
type Options struct {
	// Interval is the spacing of interpolated samples in minutes, in
	// [1, 1440].
	Interval int
}

// Assemble builds the tide curve for one location. The boundary event, when
// non-nil, is the last event before the first day and becomes the left anchor
// of the first segment. Events need not be sorted. Events sharing a date and
// time are collapsed to the first, with regular events winning over the
// boundary.
//
// The output holds every anchor verbatim, in order, with the interpolated
// samples between each pair, and is strictly increasing in (date, time).
func Assemble(events []tides.Event, boundary *tides.Event, opts Options) ([]tides.Sample, error) {
	if opts.Interval <= 0 || opts.Interval > day {
		return nil, fmt.Errorf("sampling interval %d outside [1, %d]", opts.Interval, day)
	}
	if len(events) == 0 {
		return nil, ErrNoData
	}

	anchors := prepareAnchors(events, boundary)
	if len(anchors) < 2 {
		return nil, &InsufficientDataError{
			LocationID: events[0].LocationID,
			Anchors:    len(anchors),
		}
	}

	samples := make([]tides.Sample, 0, len(anchors))
	for i := 0; i+1 < len(anchors); i++ {
		left, right := anchors[i], anchors[i+1]
		samples = append(samples, tides.AnchorOf(left))

		seg, err := NewSegment(left.Time, right.Time, right.Date.DaysSince(left.Date), opts.Interval)
		if err != nil {
			return nil, fmt.Errorf("segment %s to %s: %w", left, right, err)
		}
		samples = append(samples, fill(seg, left, right)...)
	}
	samples = append(samples, tides.AnchorOf(anchors[len(anchors)-1]))
	return samples, nil
}

// fill interpolates the samples strictly between left and right. Sample dates
// start from the left anchor's date and advance with each rollover.
func fill(seg Segment, left, right tides.Event) []tides.Sample {
	steps := seg.Steps()
	heights := Interpolate(seg.Start, left.Height, seg.End, right.Height, Zs(steps))

	out := make([]tides.Sample, len(steps))
	for i, st := range steps {
		out[i] = tides.Sample{
			LocationID: left.LocationID,
			Date:       left.Date.AddDays(st.DayOffset),
			Time:       st.Time,
			Height:     heights[i],
		}
	}
	return out
}

// prepareAnchors merges the boundary into a sorted copy of events and drops
// repeated timestamps.
func prepareAnchors(events []tides.Event, boundary *tides.Event) []tides.Event {
	merged := make([]tides.Event, 0, len(events)+1)
	merged = append(merged, events...)
	if boundary != nil {
		// Appended last so a regular event at the same timestamp sorts
		// ahead of it.
		merged = append(merged, *boundary)
	}
	tides.SortEvents(merged)

	out := make([]tides.Event, 0, len(merged))
	for _, e := range merged {
		if n := len(out); n > 0 && e.Date == out[n-1].Date && e.Time == out[n-1].Time {
			continue
		}
		out = append(out, e)
	}
	return out
}
