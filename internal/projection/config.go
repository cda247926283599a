package projection

import "fmt"

// Mode selects which coordinate frame drives the projection.
type Mode string

const (
	// ModeGeocentric projects latitude and longitude onto a map grid.
	ModeGeocentric Mode = "geocentric"
	// ModeTopocentric projects observer look angles onto a sky grid.
	ModeTopocentric Mode = "topocentric"
)

// Config describes a projection completely. The zero value is invalid;
// every field except the center must be set.
type Config struct {
	Mode   Mode    `json:"mode"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FoVDeg float64 `json:"fov_deg"`

	// CenterLatDeg and CenterLonDeg locate the map view. The sky view
	// ignores them, it is always centered on the zenith.
	CenterLatDeg float64 `json:"center_lat_deg"`
	CenterLonDeg float64 `json:"center_lon_deg"`
}

// Validate rejects configs that cannot produce a grid.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeGeocentric, ModeTopocentric:
	default:
		return fmt.Errorf("unknown projection mode %q", c.Mode)
	}
	_, err := NewGrid(c.Width, c.Height, c.FoVDeg)
	return err
}

// Grid builds the grid the config describes.
func (c Config) Grid() (Grid, error) {
	if err := c.Validate(); err != nil {
		return Grid{}, err
	}
	return NewGrid(c.Width, c.Height, c.FoVDeg)
}
