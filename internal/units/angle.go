// Package units holds the angular and orbital unit helpers shared across the
// transform, projection and classification layers. All public angles are in
// degrees; radians appear only at the boundary with the SGP4 library.
package units

import "math"

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Wrap180 wraps an angular difference into [-180, 180), the shortest signed
// angular distance. Longitude and azimuth deltas must go through this rather
// than naive subtraction so the ±180°/0°–360° seam never produces a jump of
// nearly a full turn.
func Wrap180(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// Wrap360 wraps an angle into [0, 360).
func Wrap360(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}
