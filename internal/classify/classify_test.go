package classify

import (
	"testing"

	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/sat"
)

func subjectWith(mutate func(*sat.TrackedObject)) Subject {
	obj := &sat.TrackedObject{NoradID: 1, Name: "TEST"}
	if mutate != nil {
		mutate(obj)
	}
	return Subject{Object: obj}
}

func TestTypeViewColors(t *testing.T) {
	v := TypeView()

	tests := []struct {
		name    string
		purpose sat.Purpose
		want    render.Color
	}{
		{"communications", sat.PurposeCommunications, render.Red},
		{"weather-earth", sat.PurposeWeatherEarth, render.Green},
		{"navigation", sat.PurposeNavigation, render.Blue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subjectWith(func(o *sat.TrackedObject) { o.Purposes = []sat.Purpose{tt.purpose} })
			got, ok := v.Classify(s)
			if !ok || got != tt.want {
				t.Errorf("Classify = %v, %v; want %v, true", got, ok, tt.want)
			}
		})
	}

	// No purpose tags means unpainted.
	if _, ok := v.Classify(subjectWith(nil)); ok {
		t.Error("untagged object should not match the type view")
	}
}

func TestFirstMatchWins(t *testing.T) {
	v := TypeView()
	s := subjectWith(func(o *sat.TrackedObject) {
		o.Purposes = []sat.Purpose{sat.PurposeNavigation, sat.PurposeCommunications}
	})
	got, ok := v.Classify(s)
	if !ok || got != render.Red {
		t.Errorf("Classify = %v, %v; want the earlier communications rule to win", got, ok)
	}
}

func TestLaunchAgeBoundaries(t *testing.T) {
	v := LaunchAgeView()

	tests := []struct {
		year    int
		want    render.Color
		matched bool
	}{
		{1959, render.Color{}, false},
		{1960, render.Red, true},
		{1999, render.Red, true},
		{2000, render.Green, true}, // boundary year belongs to the newer band
		{2019, render.Green, true},
		{2020, render.Blue, true}, // boundary year belongs to the newer band
		{2039, render.Blue, true},
		{2040, render.Color{}, false},
		{0, render.Color{}, false}, // unknown launch year
	}
	for _, tt := range tests {
		s := subjectWith(func(o *sat.TrackedObject) { o.LaunchYear = tt.year })
		got, ok := v.Classify(s)
		if ok != tt.matched || got != tt.want {
			t.Errorf("year %d: Classify = %v, %v; want %v, %v", tt.year, got, ok, tt.want, tt.matched)
		}
	}
}

func TestTypeCategoryColors(t *testing.T) {
	v := TypeCategoryView()

	tests := []struct {
		objType sat.ObjectType
		want    render.Color
		matched bool
	}{
		{sat.TypeDebris, render.Red, true},
		{sat.TypeRocketBody, render.Green, true},
		{sat.TypePayload, render.Blue, true},
		{sat.TypeUnknown, render.Color{}, false},
	}
	for _, tt := range tests {
		s := subjectWith(func(o *sat.TrackedObject) { o.Type = tt.objType })
		got, ok := v.Classify(s)
		if ok != tt.matched || got != tt.want {
			t.Errorf("type %v: Classify = %v, %v; want %v, %v", tt.objType, got, ok, tt.want, tt.matched)
		}
	}
}

func TestAltitudeBoundaries(t *testing.T) {
	v := AltitudeView()

	tests := []struct {
		alt     float64
		want    render.Color
		matched bool
	}{
		{-5, render.Color{}, false},
		{0, render.Red, true},
		{999.9, render.Red, true},
		{1000, render.Green, true}, // boundary altitude belongs to the higher band
		{2999.9, render.Green, true},
		{3000, render.Blue, true}, // boundary altitude belongs to the higher band
		{35768, render.Blue, true},
		{100000, render.Color{}, false},
	}
	for _, tt := range tests {
		s := subjectWith(nil)
		s.AltitudeKm = tt.alt
		got, ok := v.Classify(s)
		if ok != tt.matched || got != tt.want {
			t.Errorf("alt %g: Classify = %v, %v; want %v, %v", tt.alt, got, ok, tt.want, tt.matched)
		}
	}
}

func TestConstellationView(t *testing.T) {
	starlink := subjectWith(func(o *sat.TrackedObject) { o.Constellation = "starlink" })
	loner := subjectWith(nil)

	named := ConstellationView("starlink")
	if got, ok := named.Classify(starlink); !ok || got != render.White {
		t.Errorf("starlink member = %v, %v; want white", got, ok)
	}
	if _, ok := named.Classify(loner); ok {
		t.Error("non-member matched named constellation view")
	}

	other := ConstellationView("oneweb")
	if _, ok := other.Classify(starlink); ok {
		t.Error("starlink member matched oneweb view")
	}

	any := ConstellationView("")
	if _, ok := any.Classify(starlink); !ok {
		t.Error("constellation member should match the any-constellation view")
	}
	if _, ok := any.Classify(loner); ok {
		t.Error("loner matched the any-constellation view")
	}
}

func TestPresenceViewMatchesEverything(t *testing.T) {
	v := PresenceView()
	got, ok := v.Classify(subjectWith(nil))
	if !ok || got != render.White {
		t.Errorf("Classify = %v, %v; want white, true", got, ok)
	}
}

func TestDeviceViewOrder(t *testing.T) {
	views := DeviceViews()
	want := []string{ViewType, ViewLaunchAge, ViewTypeCategory, ViewAltitude}
	if len(views) != len(want) {
		t.Fatalf("got %d device views, want %d", len(views), len(want))
	}
	for i, name := range want {
		if views[i].Name != name {
			t.Errorf("view %d = %q, want %q", i, views[i].Name, name)
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{ViewType, ViewLaunchAge, ViewTypeCategory, ViewAltitude, ViewConstellation, ViewPresence} {
		v, ok := ByName(name)
		if !ok || v.Name != name {
			t.Errorf("ByName(%q) = %v, %v", name, v.Name, ok)
		}
	}
	if _, ok := ByName("velocity"); ok {
		t.Error("unknown view name should not resolve")
	}
}
