package curve

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

var (
	dayD = timetricks.Date{Year: 2024, Month: 11, Day: 8}
	opts = Options{Interval: DefaultInterval}
)

func event(d timetricks.Date, hour, minute int, kind tides.Kind, height float64) tides.Event {
	return tides.Event{
		LocationID: 1,
		Date:       d,
		Time:       timetricks.Clock(hour, minute),
		Height:     height,
		Kind:       kind,
	}
}

// renderSamples formats samples as "date time height kind" lines, with "-"
// for interpolated points.
func renderSamples(samples []tides.Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		kind := "-"
		if s.Kind != nil {
			kind = s.Kind.String()
		}
		out[i] = fmt.Sprintf("%s %s %.2f %s", s.Date, s.Time, s.Height, kind)
	}
	return out
}

// scenario is a full day for one location with the previous evening's high
// tide carried over.
func scenario() ([]tides.Event, *tides.Event) {
	events := []tides.Event{
		event(dayD, 2, 15, tides.Low, 0.3),
		event(dayD, 8, 30, tides.High, 1.8),
		event(dayD, 14, 45, tides.Low, 0.4),
		event(dayD, 20, 50, tides.High, 1.9),
	}
	boundary := event(dayD.AddDays(-1), 21, 0, tides.High, 1.7)
	return events, &boundary
}

func TestAssembleSameDay(t *testing.T) {
	events := []tides.Event{
		event(dayD, 10, 0, tides.Low, 1.0),
		event(dayD, 14, 0, tides.High, 2.0),
	}
	got, err := Assemble(events, nil, opts)
	require.NoError(t, err)

	want := []string{
		"2024-11-08 10:00 1.00 LOW",
		"2024-11-08 11:00 1.25 -",
		"2024-11-08 12:00 1.50 -",
		"2024-11-08 13:00 1.75 -",
		"2024-11-08 14:00 2.00 HIGH",
	}
	if diff := cmp.Diff(want, renderSamples(got)); diff != "" {
		t.Errorf("unexpected curve (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1.25, got[1].Height)
	assert.Equal(t, 1.5, got[2].Height)
	assert.Equal(t, 1.75, got[3].Height)
}

func TestAssembleMidnight(t *testing.T) {
	events := []tides.Event{
		event(dayD, 23, 0, tides.Low, 0.5),
		event(dayD.AddDays(1), 1, 0, tides.High, 1.5),
	}
	got, err := Assemble(events, nil, opts)
	require.NoError(t, err)

	want := []string{
		"2024-11-08 23:00 0.50 LOW",
		"2024-11-09 00:00 1.00 -",
		"2024-11-09 01:00 1.50 HIGH",
	}
	if diff := cmp.Diff(want, renderSamples(got)); diff != "" {
		t.Errorf("unexpected curve (-want +got):\n%s", diff)
	}
}

func TestAssembleScenario(t *testing.T) {
	events, boundary := scenario()
	got, err := Assemble(events, boundary, opts)
	require.NoError(t, err)

	want := []string{
		"2024-11-07 21:00 1.70 HIGH",
		"2024-11-07 22:00 1.43 -",
		"2024-11-07 23:00 1.17 -",
		"2024-11-08 00:00 0.90 -",
		"2024-11-08 01:00 0.63 -",
		"2024-11-08 02:00 0.37 -",
		"2024-11-08 02:15 0.30 LOW",
		"2024-11-08 03:00 0.48 -",
		"2024-11-08 04:00 0.72 -",
		"2024-11-08 05:00 0.96 -",
		"2024-11-08 06:00 1.20 -",
		"2024-11-08 07:00 1.44 -",
		"2024-11-08 08:00 1.68 -",
		"2024-11-08 08:30 1.80 HIGH",
		"2024-11-08 09:00 1.69 -",
		"2024-11-08 10:00 1.46 -",
		"2024-11-08 11:00 1.24 -",
		"2024-11-08 12:00 1.02 -",
		"2024-11-08 13:00 0.79 -",
		"2024-11-08 14:00 0.57 -",
		"2024-11-08 14:45 0.40 LOW",
		"2024-11-08 15:00 0.46 -",
		"2024-11-08 16:00 0.71 -",
		"2024-11-08 17:00 0.95 -",
		"2024-11-08 18:00 1.20 -",
		"2024-11-08 19:00 1.45 -",
		"2024-11-08 20:00 1.69 -",
		"2024-11-08 20:50 1.90 HIGH",
	}
	if diff := cmp.Diff(want, renderSamples(got)); diff != "" {
		t.Errorf("unexpected curve (-want +got):\n%s", diff)
	}
}

func TestAssembleGrid(t *testing.T) {
	events, boundary := scenario()
	// A second day, with a gap that crosses midnight twice.
	events = append(events,
		event(dayD.AddDays(1), 3, 5, tides.Low, -0.1),
		event(dayD.AddDays(3), 4, 40, tides.High, 2.2),
	)

	for _, interval := range []int{1, 15, 45, 50, 60, 90, 1440} {
		t.Run(fmt.Sprintf("interval %d", interval), func(t *testing.T) {
			got, err := Assemble(events, boundary, Options{Interval: interval})
			require.NoError(t, err)

			// Strictly increasing, hence no duplicate timestamps.
			for i := 1; i < len(got); i++ {
				prev, cur := got[i-1], got[i]
				if !tides.Before(prev.Date, prev.Time, cur.Date, cur.Time) {
					t.Fatalf("sample %d (%s %s) not after sample %d (%s %s)",
						i, cur.Date, cur.Time, i-1, prev.Date, prev.Time)
				}
			}

			// Every anchor is present verbatim.
			var anchors []tides.Event
			for _, s := range got {
				if s.Anchor() {
					anchors = append(anchors, tides.Event{
						LocationID: s.LocationID,
						Date:       s.Date,
						Time:       s.Time,
						Height:     s.Height,
						Kind:       *s.Kind,
					})
				}
			}
			want := append([]tides.Event{*boundary}, events...)
			if diff := cmp.Diff(want, anchors); diff != "" {
				t.Errorf("anchors not preserved (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembleIdempotent(t *testing.T) {
	events, boundary := scenario()
	first, err := Assemble(events, boundary, opts)
	require.NoError(t, err)
	second, err := Assemble(events, boundary, opts)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestAssembleSortsInput(t *testing.T) {
	events, boundary := scenario()
	sorted, err := Assemble(events, boundary, opts)
	require.NoError(t, err)

	shuffled := []tides.Event{events[2], events[0], events[3], events[1]}
	got, err := Assemble(shuffled, boundary, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(sorted, got); diff != "" {
		t.Errorf("unsorted input changed the curve (-want +got):\n%s", diff)
	}
	// The caller's slice is left alone.
	assert.Equal(t, events[2], shuffled[0])
}

func TestAssembleDuplicateTimestamps(t *testing.T) {
	first := event(dayD, 2, 15, tides.Low, 0.3)
	repeat := event(dayD, 2, 15, tides.Low, 0.35)
	last := event(dayD, 8, 30, tides.High, 1.8)
	staleBoundary := event(dayD, 2, 15, tides.High, 9.9)

	got, err := Assemble([]tides.Event{first, repeat, last}, &staleBoundary, opts)
	require.NoError(t, err)

	want := []string{
		"2024-11-08 02:15 0.30 LOW",
		"2024-11-08 03:00 0.48 -",
		"2024-11-08 04:00 0.72 -",
		"2024-11-08 05:00 0.96 -",
		"2024-11-08 06:00 1.20 -",
		"2024-11-08 07:00 1.44 -",
		"2024-11-08 08:00 1.68 -",
		"2024-11-08 08:30 1.80 HIGH",
	}
	if diff := cmp.Diff(want, renderSamples(got)); diff != "" {
		t.Errorf("unexpected curve (-want +got):\n%s", diff)
	}
}

func TestAssembleNotEnoughData(t *testing.T) {
	only := event(dayD, 2, 15, tides.Low, 0.3)

	t.Run("no events", func(t *testing.T) {
		_, boundary := scenario()
		got, err := Assemble(nil, boundary, opts)
		assert.True(t, errors.Is(err, ErrNoData), "got %v", err)
		assert.Empty(t, got)
	})

	t.Run("single event", func(t *testing.T) {
		_, err := Assemble([]tides.Event{only}, nil, opts)
		var insufficient *InsufficientDataError
		require.True(t, errors.As(err, &insufficient), "got %v", err)
		assert.Equal(t, int64(1), insufficient.LocationID)
		assert.Equal(t, 1, insufficient.Anchors)
	})

	t.Run("single event with boundary", func(t *testing.T) {
		_, boundary := scenario()
		got, err := Assemble([]tides.Event{only}, boundary, opts)
		require.NoError(t, err)
		assert.Len(t, got, 7)
	})

	t.Run("event repeated", func(t *testing.T) {
		_, err := Assemble([]tides.Event{only, only}, nil, opts)
		var insufficient *InsufficientDataError
		assert.True(t, errors.As(err, &insufficient), "got %v", err)
	})
}

func TestAssembleBadInterval(t *testing.T) {
	events, boundary := scenario()
	_, err := Assemble(events, boundary, Options{})
	assert.Error(t, err)
}

func ExampleAssemble() {
	d := timetricks.Date{Year: 2024, Month: 11, Day: 8}
	events := []tides.Event{
		{LocationID: 1, Date: d, Time: timetricks.Clock(23, 0), Height: 0.5, Kind: tides.Low},
		{LocationID: 1, Date: d.AddDays(1), Time: timetricks.Clock(1, 0), Height: 1.5, Kind: tides.High},
	}
	samples, err := Assemble(events, nil, Options{Interval: 60})
	if err != nil {
		panic(err)
	}
	for _, s := range samples {
		fmt.Println(s.Date, s.Time, s.Height, s.Anchor())
	}
	// Output:
	// 2024-11-08 23:00 0.5 true
	// 2024-11-09 00:00 1 false
	// 2024-11-09 01:00 1.5 true
}
