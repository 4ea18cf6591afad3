package sunset

import (
	"time"

	"github.com/spencer-p/tidegraph/pkg/timetricks"

	"github.com/keep94/sunrise"
)

// GetSunEvents returns the sunrise and sunset of each of days calendar days
// from start in the given place, in order. The first result is always a
// sunrise.
func GetSunEvents(start timetricks.Date, days int, place Place) SunEvents {
	ret := make(SunEvents, 0, days*2)
	for i := 0; i < days; i++ {
		// Anchor on local noon so the sunrise package picks this day's
		// events rather than a neighbor's.
		noon := start.AddDays(i).In(place.Location).Add(12 * time.Hour)

		var s sunrise.Sunrise
		s.Around(place.Lat, place.Long, noon)
		ret = append(ret,
			SunEvent{s.Sunrise().In(place.Location), Sunrise},
			SunEvent{s.Sunset().In(place.Location), Sunset})
	}
	return ret
}

// On returns the sunrise and sunset falling on date d, if present.
func (events SunEvents) On(d timetricks.Date, loc *time.Location) (rise, set time.Time, ok bool) {
	day := d.In(loc)
	var haveRise, haveSet bool
	for _, e := range events {
		if !timetricks.SameDay(day, e.Time) {
			continue
		}
		if e.Event == Sunrise {
			rise, haveRise = e.Time, true
		} else {
			set, haveSet = e.Time, true
		}
	}
	return rise, set, haveRise && haveSet
}
