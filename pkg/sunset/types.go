package sunset

import (
	"fmt"
	"time"
)

// Place is a lat/long coordinate on the Earth matched with its time zone.
type Place struct {
	Lat, Long float64
	Location  *time.Location
}

// NewPlace builds a Place from coordinates and an IANA zone name. An empty
// zone means UTC.
func NewPlace(lat, long float64, zone string) (Place, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Place{}, fmt.Errorf("time zone %q: %w", zone, err)
	}
	return Place{Lat: lat, Long: long, Location: loc}, nil
}

// SunEvents is a time series of SunEvent, ordered by time.
type SunEvents []SunEvent

// SunEvent is a sunrise or sunset at a place.
type SunEvent struct {
	Time  time.Time
	Event Event
}

func (s SunEvent) String() string {
	return s.Event.String() + " " + s.Time.Format("2006-01-02 15:04 MST")
}

// Event tells sunrises from sunsets.
type Event bool

const (
	Sunrise Event = true
	Sunset  Event = false
)

func (e Event) String() string {
	if e == Sunrise {
		return "sunrise"
	}
	return "sunset"
}
