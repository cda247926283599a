package units

// EarthRadiusKm is the mean Earth radius used throughout the projection
// geometry, in kilometres.
const EarthRadiusKm = 6371.0

// Orbit names a well-known orbital shell by its nominal altitude above the
// Earth's surface, in kilometres. The presets are used as field-of-view
// reference shells when converting between observer-relative and
// Earth-centred angular spans.
type Orbit float64

const (
	// OrbitVLEO is the very low Earth orbit shell.
	OrbitVLEO Orbit = 400
	// OrbitStarlink is the nominal Starlink shell.
	OrbitStarlink Orbit = 550
	// OrbitLEO is the upper bound of low Earth orbit.
	OrbitLEO Orbit = 2000
	// OrbitGEO is the geostationary shell.
	OrbitGEO Orbit = 35768
)

// AltitudeKm returns the shell altitude in kilometres.
func (o Orbit) AltitudeKm() float64 { return float64(o) }

// RadiusKm returns the shell's distance from the Earth's centre in kilometres.
func (o Orbit) RadiusKm() float64 { return float64(o) + EarthRadiusKm }
