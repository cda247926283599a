package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/units"
)

// TestFlagDefaults keeps the documented invocation in sync with the flag
// block.
func TestFlagDefaults(t *testing.T) {
	if *listen != ":8080" {
		t.Errorf("listen default = %q, want :8080", *listen)
	}
	if *baud != 115200 {
		t.Errorf("baud default = %d, want 115200", *baud)
	}
	if *dbFile != "satgrid.db" {
		t.Errorf("db default = %q, want satgrid.db", *dbFile)
	}
	if *modeFlag != "topocentric" {
		t.Errorf("mode default = %q, want topocentric", *modeFlag)
	}
	if *shellFlag != "starlink" {
		t.Errorf("shell default = %q, want starlink", *shellFlag)
	}
	if *emulate || *disableSerial || *skipMigrationCheck {
		t.Error("boolean flags must default to false")
	}
	if len(splitGroups(*groupsFlag)) == 0 {
		t.Error("groups default must name at least one group")
	}
}

func TestSplitGroups(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "stations,weather", []string{"stations", "weather"}},
		{"spaces trimmed", " stations , weather ", []string{"stations", "weather"}},
		{"empty entries dropped", "stations,,weather,", []string{"stations", "weather"}},
		{"empty string", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, splitGroups(tc.in)); diff != "" {
				t.Errorf("splitGroups(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    projection.Mode
		wantErr bool
	}{
		{in: "topocentric", want: projection.ModeTopocentric},
		{in: "sky", want: projection.ModeTopocentric},
		{in: "geocentric", want: projection.ModeGeocentric},
		{in: "map", want: projection.ModeGeocentric},
		{in: "GEOCENTRIC", want: projection.ModeGeocentric},
		{in: " sky ", want: projection.ModeTopocentric},
		{in: "polar", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseMode(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMode(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseShell(t *testing.T) {
	tests := []struct {
		in      string
		want    units.Orbit
		wantErr bool
	}{
		{in: "vleo", want: units.OrbitVLEO},
		{in: "starlink", want: units.OrbitStarlink},
		{in: "Starlink", want: units.OrbitStarlink},
		{in: "leo", want: units.OrbitLEO},
		{in: "geo", want: units.OrbitGEO},
		{in: "meo", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseShell(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseShell(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseShell(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseShell(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestProjectionConfigFoVReference checks the vantage conversion wiring:
// an observer-referenced field of view narrows to an Earth-centred span on
// the map view and passes through unchanged on the sky view.
func TestProjectionConfigFoVReference(t *testing.T) {
	// Nil tuning serves the defaults, which are observer-referenced.
	skyCfg := projectionConfig(nil, projection.ModeTopocentric, units.OrbitStarlink)
	if skyCfg.FoVDeg != config.DefaultFieldOfViewDeg {
		t.Errorf("sky FoV = %v, want %v unchanged", skyCfg.FoVDeg, config.DefaultFieldOfViewDeg)
	}
	if skyCfg.Width != config.DefaultGridWidth || skyCfg.Height != config.DefaultGridHeight {
		t.Errorf("grid = %dx%d, want %dx%d",
			skyCfg.Width, skyCfg.Height, config.DefaultGridWidth, config.DefaultGridHeight)
	}
	if skyCfg.CenterLatDeg != config.DefaultObserverLatDeg {
		t.Errorf("center latitude = %v, want %v", skyCfg.CenterLatDeg, config.DefaultObserverLatDeg)
	}

	mapCfg := projectionConfig(nil, projection.ModeGeocentric, units.OrbitStarlink)
	if mapCfg.FoVDeg <= 0 || mapCfg.FoVDeg >= config.DefaultFieldOfViewDeg {
		t.Errorf("map FoV = %v, want a narrower Earth-centred span", mapCfg.FoVDeg)
	}

	// An origin-referenced span passes through on the map view and widens
	// into the observer angle on the sky view.
	tuning := &config.Tuning{
		FieldOfViewDeg: config.PtrFloat64(20),
		FoVReference:   config.PtrString(config.FoVReferenceOrigin),
	}
	if got := projectionConfig(tuning, projection.ModeGeocentric, units.OrbitStarlink).FoVDeg; got != 20 {
		t.Errorf("origin-referenced map FoV = %v, want 20 unchanged", got)
	}
	if got := projectionConfig(tuning, projection.ModeTopocentric, units.OrbitStarlink).FoVDeg; got <= 20 {
		t.Errorf("origin-referenced sky FoV = %v, want wider than 20", got)
	}
}
