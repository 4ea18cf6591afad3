// Package curve turns sparse tide extremes into a regularly sampled tide
// curve. Everything here is pure and safe to call from many goroutines.
package curve

import (
	"gonum.org/v1/gonum/floats/scalar"
)

// heightPrecision is the number of decimal places kept on interpolated
// heights.
const heightPrecision = 2

// Interpolate linearly interpolates the height at each minute z between the
// anchors (t0, h0) and (t1, h1). Minutes are on a continuous axis, so t1 may
// exceed 1440 when the segment crosses midnight. A zero width segment yields
// h0 everywhere.
func Interpolate(t0 int, h0 float64, t1 int, h1 float64, zs []int) []float64 {
	out := make([]float64, len(zs))
	for i, z := range zs {
		out[i] = interpolateAt(t0, h0, t1, h1, z)
	}
	return out
}

func interpolateAt(t0 int, h0 float64, t1 int, h1 float64, z int) float64 {
	if t1 == t0 {
		return h0
	}
	frac := float64(z-t0) / float64(t1-t0)
	return scalar.Round(h0+frac*(h1-h0), heightPrecision)
}
