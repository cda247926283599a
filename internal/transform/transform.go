// Package transform converts propagated ECI states into the coordinate
// frames the projection layer consumes: geocentric latitude/longitude and
// observer-relative look angles.
package transform

import (
	"math"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/units"
)

// Observer is a ground station location plus the area identity used to
// match playback caches.
type Observer struct {
	LatDeg   float64 `json:"lat_deg"`
	LonDeg   float64 `json:"lon_deg"`
	AltKm    float64 `json:"alt_km"`
	AreaSlug string  `json:"area_slug"`
}

// latLong returns the observer position in the radian form the SGP4
// library expects.
func (o Observer) latLong() satellite.LatLong {
	return satellite.LatLong{
		Latitude:  units.DegToRad(o.LatDeg),
		Longitude: units.DegToRad(o.LonDeg),
	}
}

// Geocentric is a position over the rotating Earth.
type Geocentric struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltKm  float64 `json:"alt_km"`
}

// Topocentric is a direction and distance from an observer.
type Topocentric struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
}

// AboveHorizon reports whether the object is visible from the observer.
func (t Topocentric) AboveHorizon() bool {
	return t.ElevationDeg > 0
}

// zenithEpsDeg bounds how close to straight up or straight down an
// elevation must be before the azimuth is forced to 0. At those poles the
// azimuth is numerically meaningless and would otherwise flicker between
// frames.
const zenithEpsDeg = 1e-9

// ToGeocentric converts a propagated state to latitude, longitude and
// altitude over the rotating Earth. Longitude is normalized to [-180, 180).
func ToGeocentric(st ephem.State) Geocentric {
	pos := satellite.Vector3{X: st.Position.X, Y: st.Position.Y, Z: st.Position.Z}
	altKm, _, ll := satellite.ECIToLLA(pos, st.GMST)
	return Geocentric{
		LatDeg: units.RadToDeg(ll.Latitude),
		LonDeg: units.Wrap180(units.RadToDeg(ll.Longitude)),
		AltKm:  altKm,
	}
}

// ToTopocentric converts a propagated state to look angles from the
// observer. Azimuth is normalized to [0, 360) with north at 0; an object
// within zenithEpsDeg of straight up or down reports azimuth 0.
func ToTopocentric(st ephem.State, obs Observer) Topocentric {
	pos := satellite.Vector3{X: st.Position.X, Y: st.Position.Y, Z: st.Position.Z}
	angles := satellite.ECIToLookAngles(pos, obs.latLong(), obs.AltKm, st.JulianDay)
	return lookToTopocentric(angles.Az, angles.El, angles.Rg)
}

// lookToTopocentric normalizes raw look angles in radians and km.
func lookToTopocentric(azRad, elRad, rangeKm float64) Topocentric {
	elDeg := units.RadToDeg(elRad)
	azDeg := units.Wrap360(units.RadToDeg(azRad))
	if math.Abs(90-math.Abs(elDeg)) <= zenithEpsDeg {
		azDeg = 0
	}
	return Topocentric{
		AzimuthDeg:   azDeg,
		ElevationDeg: elDeg,
		RangeKm:      rangeKm,
	}
}
