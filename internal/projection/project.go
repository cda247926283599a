package projection

import (
	"math"

	"github.com/orbview/satgrid/internal/transform"
	"github.com/orbview/satgrid/internal/units"
)

// MapProjector projects geographic positions onto a grid centered on a
// reference point, north up. Longitude deltas wrap so the antimeridian
// never splits the view.
type MapProjector struct {
	Grid         Grid
	CenterLatDeg float64
	CenterLonDeg float64
}

// Project maps a geocentric position to a pixel. The second return value
// is false when the position falls outside the grid.
func (p MapProjector) Project(c transform.Geocentric) (Pixel, bool) {
	dLon := units.Wrap180(c.LonDeg - p.CenterLonDeg)
	dLat := c.LatDeg - p.CenterLatDeg
	return p.Grid.place(dLon, dLat)
}

// SkyProjector projects observer look angles onto a grid centered on the
// zenith, north up and east to the right. The zenith distance (90 minus
// elevation) is decomposed along the azimuth into east and north offsets.
type SkyProjector struct {
	Grid Grid
}

// Project maps look angles to a pixel. The second return value is false
// when the direction falls outside the grid.
func (p SkyProjector) Project(c transform.Topocentric) (Pixel, bool) {
	zenithDist := 90 - c.ElevationDeg
	azRad := units.DegToRad(c.AzimuthDeg)
	east := zenithDist * math.Sin(azRad)
	north := zenithDist * math.Cos(azRad)
	return p.Grid.place(east, north)
}

// ObserverToOriginFoV converts a field of view measured at an observer on
// the surface into the equivalent angle subtended at the planet center,
// for objects orbiting at the given altitude. The conversion solves the
// triangle formed by the center, the observer and an object sitting on
// the edge of the field of view.
func ObserverToOriginFoV(observerFoVDeg, orbitAltKm float64) float64 {
	b := units.EarthRadiusKm + orbitAltKm
	c := units.EarthRadiusKm

	angleB := 180 - observerFoVDeg/2
	sinC := c / b * math.Sin(units.DegToRad(angleB))
	angleC := units.RadToDeg(math.Asin(clamp(sinC, -1, 1)))
	angleA := 180 - angleB - angleC
	return 2 * angleA
}

// OriginToObserverFoV is the inverse of ObserverToOriginFoV.
func OriginToObserverFoV(originFoVDeg, orbitAltKm float64) float64 {
	b := units.EarthRadiusKm + orbitAltKm
	c := units.EarthRadiusKm

	angleA := units.DegToRad(originFoVDeg / 2)
	a := math.Sqrt(b*b + c*c - 2*b*c*math.Cos(angleA))
	cosB := (a*a + c*c - b*b) / (2 * a * c)
	angleB := units.RadToDeg(math.Acos(clamp(cosB, -1, 1)))
	return 2 * (180 - angleB)
}

// AltitudeFromSlantRange recovers an object's altitude above the surface
// from its slant range and elevation as seen by a surface observer.
func AltitudeFromSlantRange(rangeKm, elevationDeg float64) float64 {
	r := units.EarthRadiusKm
	sinEl := math.Sin(units.DegToRad(elevationDeg))
	return math.Sqrt(r*r+rangeKm*rangeKm+2*r*rangeKm*sinEl) - r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
