package visualize

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spencer-p/tidegraph/pkg/sunset"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

const (
	width  = 1200
	height = 300

	minutesPerDay = timetricks.MinutesPerDay
)

// Tidal draws one day of a tide curve as SVG.
type Tidal struct {
	date      timetricks.Date
	loc       *time.Location
	samples   []tides.Sample
	sunEvents sunset.SunEvents
	units     tides.Units
}

func NewTidal(samples []tides.Sample, sunEvents sunset.SunEvents, units tides.Units) *Tidal {
	return &Tidal{
		samples:   samples,
		sunEvents: sunEvents,
		units:     units,
		loc:       time.UTC,
	}
}

// SetDate picks the day to draw. Sun events are matched in loc.
func (img *Tidal) SetDate(d timetricks.Date, loc *time.Location) {
	img.date = d
	if loc != nil {
		img.loc = loc
	}
}

func (img *Tidal) Encode(w io.Writer) (int, error) {
	var n int
	var err error
	io := func(nextn int, nexterr error) {
		n += nextn
		if nexterr != nil {
			err = nexterr
		}
	}

	visible := img.visible()
	if len(visible) < 2 {
		return 0, fmt.Errorf("not enough tide data for %s", img.date)
	}
	lo, hi := img.heightRange(visible)

	io(fmt.Fprintf(w, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height))

	// Draw the sunshine if we know when it is.
	rise, set, haveSun := img.sunEvents.On(img.date, img.loc)
	var risex, setx int
	if haveSun {
		risex = clockToX(rise.Hour()*60 + rise.Minute())
		setx = clockToX(set.Hour()*60 + set.Minute())
		io(fmt.Fprintf(w, `<rect class="daytime" fill="lightyellow" x="%d" y="%d" width="%d" height="%d"/>`,
			risex, 0,
			setx-risex, height))
	}

	// Hour marks from the first full hour of the day's data, unless that
	// rounds into tomorrow.
	first := img.firstOnDate(visible)
	if tick := timetricks.RoundUpToHour(first); tick.Hour() >= first.Hour() {
		for m := tick.Minutes(); m < minutesPerDay; m += 60 {
			x := clockToX(m)
			io(fmt.Fprintf(w, `<line class="hour" stroke="lightgray" x1="%d" y1="0" x2="%d" y2="%d"/>`, x, x, height))
		}
	}

	// The tide itself, filled down to the bottom edge.
	io(fmt.Fprintf(w, `<path class="tide" fill="skyblue" d="M %d,%d`, img.sampleToX(visible[0]), height))
	for _, s := range visible {
		io(fmt.Fprintf(w, ` L %d,%d`, img.sampleToX(s), heightToY(img.height(s), lo, hi)))
	}
	io(fmt.Fprintf(w, ` L %d,%d z"/>`, img.sampleToX(visible[len(visible)-1]), height))

	// Label the extremes.
	for _, s := range visible {
		if !s.Anchor() || s.Date != img.date {
			continue
		}
		io(fmt.Fprintf(w, `<text class="%s" x="%d" y="%d">%s %.2f%s</text>`,
			s.Kind.String(),
			img.sampleToX(s), heightToY(img.height(s), lo, hi),
			s.Time, img.height(s), img.units))
	}

	// Draw the night time shadows.
	if haveSun {
		io(fmt.Fprintf(w, `<rect class="night" fill="blue" fill-opacity="25%%" x="%d" y="%d" width="%d" height="%d"/>`,
			0, 0,
			risex, height))
		io(fmt.Fprintf(w, `<rect class="night" fill="blue" fill-opacity="25%%" x="%d" y="%d" width="%d" height="%d"/>`,
			setx, 0,
			width-setx, height))
	}

	// Insert date of this graph.
	io(fmt.Fprintf(w, `<text class="date" visibility="hidden">%s</text>`, img.date))

	io(fmt.Fprintf(w, `</svg>`))

	return n, err
}

// visible returns the samples on the chart's date plus one neighbor on each
// side, so the curve runs off both edges.
func (img *Tidal) visible() []tides.Sample {
	start, end := -1, -1
	for i, s := range img.samples {
		if s.Date == img.date {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	if start < 0 {
		return nil
	}
	if start > 0 {
		start--
	}
	if end+1 < len(img.samples) {
		end++
	}
	return img.samples[start : end+1]
}

func (img *Tidal) firstOnDate(samples []tides.Sample) timetricks.TimeOfDay {
	for _, s := range samples {
		if s.Date == img.date {
			return s.Time
		}
	}
	return 0
}

func (img *Tidal) height(s tides.Sample) float64 {
	return tides.ConvertHeight(s.Height, img.units)
}

// heightRange pads the visible heights by a tenth of their span.
func (img *Tidal) heightRange(samples []tides.Sample) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		h := img.height(s)
		lo = math.Min(lo, h)
		hi = math.Max(hi, h)
	}
	pad := (hi - lo) / 10
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func (img *Tidal) sampleToX(s tides.Sample) int {
	return clockToX(s.Date.DaysSince(img.date)*minutesPerDay + s.Time.Minutes())
}

func clockToX(minutes int) int {
	return minutes * width / minutesPerDay
}

func heightToY(h, lo, hi float64) int {
	return height - int((h-lo)/(hi-lo)*height)
}
