package tides

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// MetersToFeet is the presentation conversion factor. Stored heights are
// always meters.
const MetersToFeet = 3.28084

// Units selects how heights are presented.
type Units string

const (
	Meters Units = "m"
	Feet   Units = "ft"
)

// ParseUnits accepts m, ft and their long forms.
func ParseUnits(s string) (Units, error) {
	switch s {
	case "m", "meters":
		return Meters, nil
	case "ft", "feet":
		return Feet, nil
	default:
		return "", fmt.Errorf("unknown units %q", s)
	}
}

// ConvertHeight converts a height in meters for display, rounded to two
// decimal places.
func ConvertHeight(meters float64, u Units) float64 {
	if u == Feet {
		meters *= MetersToFeet
	}
	return scalar.Round(meters, 2)
}
