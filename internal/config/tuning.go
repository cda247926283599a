// Package config provides tuning configuration for satgrid.
//
// Tuning values are loaded from an optional JSON file. Every field is a
// pointer so that absent fields fall back to defaults and a partial file
// overrides only what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults applied when a tuning field is absent.
const (
	DefaultGridWidth  = 32
	DefaultGridHeight = 16

	DefaultFieldOfViewDeg = 140.0

	DefaultQuietPeriodMS      = 2000
	DefaultUntetherGapMS      = 5000
	DefaultDimensionRetries   = 3
	DefaultReadTimeoutMS      = 1000
	DefaultPauseTimeoutMS     = 300000
	DefaultFrameIntervalMS    = 1000
	DefaultCatalogMaxAgeHours = 24

	DefaultObserverLatDeg = 47.6062
	DefaultObserverLonDeg = -122.3321
	DefaultObserverAltKm  = 0.0
	DefaultAreaSlug       = "seattle"

	DefaultCelestrakBaseURL = "https://celestrak.org"

	// maxTuningFileSize caps tuning file reads at 1MB.
	maxTuningFileSize = 1024 * 1024
)

// FoVReference names the vantage a configured field of view is measured from.
// "observer" means the angle subtended at the observer on the surface;
// "origin" means the angle subtended at the planet center.
const (
	FoVReferenceObserver = "observer"
	FoVReferenceOrigin   = "origin"
)

// Tuning holds tunable parameters for the tracking pipeline and display
// session. All fields are optional; use the Get methods to read values
// with defaults applied.
type Tuning struct {
	// Display grid dimensions in pixels.
	GridWidth  *int `json:"grid_width,omitempty"`
	GridHeight *int `json:"grid_height,omitempty"`

	// Field of view across the grid diagonal, in degrees, and the vantage
	// it is measured from ("observer" or "origin").
	FieldOfViewDeg *float64 `json:"field_of_view_deg,omitempty"`
	FoVReference   *string  `json:"fov_reference,omitempty"`

	// Observer location and area identity.
	ObserverLatDeg *float64 `json:"observer_lat_deg,omitempty"`
	ObserverLonDeg *float64 `json:"observer_lon_deg,omitempty"`
	ObserverAltKm  *float64 `json:"observer_alt_km,omitempty"`
	AreaSlug       *string  `json:"area_slug,omitempty"`

	// Tethered session timing.
	QuietPeriodMS    *int64 `json:"quiet_period_ms,omitempty"`
	UntetherGapMS    *int64 `json:"untether_gap_ms,omitempty"`
	DimensionRetries *int   `json:"dimension_retries,omitempty"`
	ReadTimeoutMS    *int64 `json:"read_timeout_ms,omitempty"`

	// Untethered playback timing.
	PauseTimeoutMS  *int64 `json:"pause_timeout_ms,omitempty"`
	FrameIntervalMS *int64 `json:"frame_interval_ms,omitempty"`

	// DifferentialUpload enables skipping pixels unchanged since the
	// previous frame when streaming to the device.
	DifferentialUpload *bool `json:"differential_upload,omitempty"`

	// Catalog fetch settings.
	CatalogMaxAgeHours *int    `json:"catalog_max_age_hours,omitempty"`
	CelestrakBaseURL   *string `json:"celestrak_base_url,omitempty"`
}

// LoadTuning reads a tuning configuration from a JSON file.
// Returns nil (not an error) if path is empty, so callers can pass the
// flag value through unconditionally.
func LoadTuning(path string) (*Tuning, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("tuning config must be a .json file, got %q", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning config: %w", err)
	}
	if info.Size() > maxTuningFileSize {
		return nil, fmt.Errorf("tuning config too large: %d bytes (max %d)", info.Size(), maxTuningFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning config: %w", err)
	}

	var t Tuning
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning config: %w", err)
	}
	return &t, nil
}

// Validate checks that all present fields hold usable values.
func (t *Tuning) Validate() error {
	if t == nil {
		return nil
	}
	if t.GridWidth != nil && (*t.GridWidth < 1 || *t.GridWidth > 4096) {
		return fmt.Errorf("grid_width must be in [1, 4096], got %d", *t.GridWidth)
	}
	if t.GridHeight != nil && (*t.GridHeight < 1 || *t.GridHeight > 4096) {
		return fmt.Errorf("grid_height must be in [1, 4096], got %d", *t.GridHeight)
	}
	if t.FieldOfViewDeg != nil && (*t.FieldOfViewDeg <= 0 || *t.FieldOfViewDeg >= 360) {
		return fmt.Errorf("field_of_view_deg must be in (0, 360), got %g", *t.FieldOfViewDeg)
	}
	if t.FoVReference != nil && *t.FoVReference != FoVReferenceObserver && *t.FoVReference != FoVReferenceOrigin {
		return fmt.Errorf("fov_reference must be %q or %q, got %q", FoVReferenceObserver, FoVReferenceOrigin, *t.FoVReference)
	}
	if t.ObserverLatDeg != nil && (*t.ObserverLatDeg < -90 || *t.ObserverLatDeg > 90) {
		return fmt.Errorf("observer_lat_deg must be in [-90, 90], got %g", *t.ObserverLatDeg)
	}
	if t.ObserverLonDeg != nil && (*t.ObserverLonDeg < -180 || *t.ObserverLonDeg >= 360) {
		return fmt.Errorf("observer_lon_deg must be in [-180, 360), got %g", *t.ObserverLonDeg)
	}
	if t.AreaSlug != nil && *t.AreaSlug == "" {
		return fmt.Errorf("area_slug must not be empty when set")
	}
	if t.QuietPeriodMS != nil && *t.QuietPeriodMS < 1 {
		return fmt.Errorf("quiet_period_ms must be positive, got %d", *t.QuietPeriodMS)
	}
	if t.UntetherGapMS != nil && *t.UntetherGapMS < 1 {
		return fmt.Errorf("untether_gap_ms must be positive, got %d", *t.UntetherGapMS)
	}
	if t.QuietPeriodMS != nil && t.UntetherGapMS != nil && *t.UntetherGapMS < *t.QuietPeriodMS {
		return fmt.Errorf("untether_gap_ms (%d) must not be less than quiet_period_ms (%d)", *t.UntetherGapMS, *t.QuietPeriodMS)
	}
	if t.DimensionRetries != nil && *t.DimensionRetries < 1 {
		return fmt.Errorf("dimension_retries must be positive, got %d", *t.DimensionRetries)
	}
	if t.ReadTimeoutMS != nil && *t.ReadTimeoutMS < 1 {
		return fmt.Errorf("read_timeout_ms must be positive, got %d", *t.ReadTimeoutMS)
	}
	if t.PauseTimeoutMS != nil && *t.PauseTimeoutMS < 1 {
		return fmt.Errorf("pause_timeout_ms must be positive, got %d", *t.PauseTimeoutMS)
	}
	if t.FrameIntervalMS != nil && *t.FrameIntervalMS < 1 {
		return fmt.Errorf("frame_interval_ms must be positive, got %d", *t.FrameIntervalMS)
	}
	if t.CatalogMaxAgeHours != nil && *t.CatalogMaxAgeHours < 1 {
		return fmt.Errorf("catalog_max_age_hours must be positive, got %d", *t.CatalogMaxAgeHours)
	}
	if t.CelestrakBaseURL != nil && *t.CelestrakBaseURL == "" {
		return fmt.Errorf("celestrak_base_url must not be empty when set")
	}
	return nil
}

// GetGridWidth returns the grid width with the default applied.
func (t *Tuning) GetGridWidth() int {
	if t != nil && t.GridWidth != nil {
		return *t.GridWidth
	}
	return DefaultGridWidth
}

// GetGridHeight returns the grid height with the default applied.
func (t *Tuning) GetGridHeight() int {
	if t != nil && t.GridHeight != nil {
		return *t.GridHeight
	}
	return DefaultGridHeight
}

// GetFieldOfViewDeg returns the field of view with the default applied.
func (t *Tuning) GetFieldOfViewDeg() float64 {
	if t != nil && t.FieldOfViewDeg != nil {
		return *t.FieldOfViewDeg
	}
	return DefaultFieldOfViewDeg
}

// GetFoVReference returns the field-of-view vantage with the default applied.
func (t *Tuning) GetFoVReference() string {
	if t != nil && t.FoVReference != nil {
		return *t.FoVReference
	}
	return FoVReferenceObserver
}

// GetObserverLatDeg returns the observer latitude with the default applied.
func (t *Tuning) GetObserverLatDeg() float64 {
	if t != nil && t.ObserverLatDeg != nil {
		return *t.ObserverLatDeg
	}
	return DefaultObserverLatDeg
}

// GetObserverLonDeg returns the observer longitude with the default applied.
func (t *Tuning) GetObserverLonDeg() float64 {
	if t != nil && t.ObserverLonDeg != nil {
		return *t.ObserverLonDeg
	}
	return DefaultObserverLonDeg
}

// GetObserverAltKm returns the observer altitude with the default applied.
func (t *Tuning) GetObserverAltKm() float64 {
	if t != nil && t.ObserverAltKm != nil {
		return *t.ObserverAltKm
	}
	return DefaultObserverAltKm
}

// GetAreaSlug returns the observer area slug with the default applied.
func (t *Tuning) GetAreaSlug() string {
	if t != nil && t.AreaSlug != nil {
		return *t.AreaSlug
	}
	return DefaultAreaSlug
}

// GetQuietPeriodMS returns the tethered quiet period with the default applied.
func (t *Tuning) GetQuietPeriodMS() int64 {
	if t != nil && t.QuietPeriodMS != nil {
		return *t.QuietPeriodMS
	}
	return DefaultQuietPeriodMS
}

// GetUntetherGapMS returns the command gap after which a device presumes
// itself untethered, with the default applied.
func (t *Tuning) GetUntetherGapMS() int64 {
	if t != nil && t.UntetherGapMS != nil {
		return *t.UntetherGapMS
	}
	return DefaultUntetherGapMS
}

// GetDimensionRetries returns the dimension query retry budget with the
// default applied.
func (t *Tuning) GetDimensionRetries() int {
	if t != nil && t.DimensionRetries != nil {
		return *t.DimensionRetries
	}
	return DefaultDimensionRetries
}

// GetReadTimeoutMS returns the serial read timeout with the default applied.
func (t *Tuning) GetReadTimeoutMS() int64 {
	if t != nil && t.ReadTimeoutMS != nil {
		return *t.ReadTimeoutMS
	}
	return DefaultReadTimeoutMS
}

// GetPauseTimeoutMS returns the untethered pause timeout with the default
// applied.
func (t *Tuning) GetPauseTimeoutMS() int64 {
	if t != nil && t.PauseTimeoutMS != nil {
		return *t.PauseTimeoutMS
	}
	return DefaultPauseTimeoutMS
}

// GetFrameIntervalMS returns the playback frame interval with the default
// applied.
func (t *Tuning) GetFrameIntervalMS() int64 {
	if t != nil && t.FrameIntervalMS != nil {
		return *t.FrameIntervalMS
	}
	return DefaultFrameIntervalMS
}

// GetDifferentialUpload reports whether unchanged pixels are skipped when
// streaming frames, with the default applied.
func (t *Tuning) GetDifferentialUpload() bool {
	if t != nil && t.DifferentialUpload != nil {
		return *t.DifferentialUpload
	}
	return true
}

// GetCatalogMaxAgeHours returns the catalog cache freshness bound with the
// default applied.
func (t *Tuning) GetCatalogMaxAgeHours() int {
	if t != nil && t.CatalogMaxAgeHours != nil {
		return *t.CatalogMaxAgeHours
	}
	return DefaultCatalogMaxAgeHours
}

// GetCelestrakBaseURL returns the CelesTrak base URL with the default applied.
func (t *Tuning) GetCelestrakBaseURL() string {
	if t != nil && t.CelestrakBaseURL != nil {
		return *t.CelestrakBaseURL
	}
	return DefaultCelestrakBaseURL
}

// Helper functions for creating pointers to literals in code and tests.

func PtrFloat64(v float64) *float64 { return &v }
func PtrBool(v bool) *bool          { return &v }
func PtrString(v string) *string    { return &v }
func PtrInt(v int) *int             { return &v }
func PtrInt64(v int64) *int64       { return &v }
