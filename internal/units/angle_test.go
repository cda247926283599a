package units

import (
	"math"
	"testing"
)

func TestWrap180(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"small positive", 10, 10},
		{"small negative", -10, -10},
		{"exactly 180 wraps negative", 180, -180},
		{"exactly -180 stays", -180, -180},
		{"190 wraps", 190, -170},
		{"-190 wraps", -190, 170},
		{"359 wraps", 359, -1},
		{"full turn", 360, 0},
		{"beyond full turn", 370, 10},
		{"large negative", -540, -180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap180(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Wrap180(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrap360(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{361, 1},
		{-1, 359},
		{-360, 0},
		{720.5, 0.5},
	}

	for _, tt := range tests {
		if got := Wrap360(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Wrap360(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDegRadRoundTrip(t *testing.T) {
	for _, deg := range []float64{0, 45, 90, -30, 123.456} {
		if got := RadToDeg(DegToRad(deg)); math.Abs(got-deg) > 1e-12 {
			t.Errorf("round trip of %v produced %v", deg, got)
		}
	}

	if got := DegToRad(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("DegToRad(180) = %v, want pi", got)
	}
}

func TestOrbitRadius(t *testing.T) {
	if got := OrbitStarlink.RadiusKm(); got != 550+EarthRadiusKm {
		t.Errorf("Starlink radius = %v, want %v", got, 550+EarthRadiusKm)
	}
	if got := OrbitGEO.AltitudeKm(); got != 35768 {
		t.Errorf("GEO altitude = %v, want 35768", got)
	}
}
