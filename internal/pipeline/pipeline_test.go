package pipeline

import (
	"testing"
	"time"

	"github.com/orbview/satgrid/internal/classify"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/sat"
	"github.com/orbview/satgrid/internal/transform"
)

var issElement = sat.Element{
	Name:    "ISS (ZARYA)",
	Line1:   "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927",
	Line2:   "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537",
	NoradID: 25544,
	Epoch:   time.Date(2008, 9, 20, 12, 25, 40, 0, time.UTC),
}

// newISSWorld builds a catalog and propagator holding just the ISS.
func newISSWorld(t *testing.T) (*sat.Catalog, *ephem.Propagator) {
	t.Helper()
	catalog := sat.NewCatalog()
	catalog.AddElements("stations", []sat.Element{issElement})

	prop := ephem.NewPropagator()
	obj, _ := catalog.Get(25544)
	if err := prop.Add(obj); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return catalog, prop
}

// wholeEarth is a geocentric config whose span exceeds the full globe,
// so every propagated object lands on the grid.
func wholeEarth() projection.Config {
	return projection.Config{
		Mode:   projection.ModeGeocentric,
		Width:  32,
		Height: 16,
		FoVDeg: 359,
	}
}

func litPixel(t *testing.T, f *render.Frame) (int, int, render.Color) {
	t.Helper()
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if c, _ := f.At(x, y); !c.IsBlack() {
				return x, y, c
			}
		}
	}
	t.Fatal("no lit pixel in frame")
	return 0, 0, render.Color{}
}

func TestRunnerSnapshotWholeEarth(t *testing.T) {
	catalog, prop := newISSWorld(t)
	r, err := NewRunner(catalog, prop, Options{
		Observer:   transform.Observer{AreaSlug: "seattle"},
		Projection: wholeEarth(),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	snap, err := r.Snapshot(issElement.Epoch)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ID == "" {
		t.Error("snapshot has no ID")
	}
	if !snap.At.Equal(issElement.Epoch) {
		t.Errorf("At = %v, want %v", snap.At, issElement.Epoch)
	}
	want := Counts{Considered: 1, Drawn: 1}
	if snap.Counts != want {
		t.Errorf("counts = %+v, want %+v", snap.Counts, want)
	}

	// The ISS designator is 98067A, so the launch-age view paints its
	// oldest band. The orbit is a few hundred km up, the low altitude
	// band.
	for _, tc := range []struct {
		view string
		lit  int
		c    render.Color
	}{
		{classify.ViewLaunchAge, 1, render.Red},
		{classify.ViewAltitude, 1, render.Red},
		{classify.ViewType, 0, render.Black},
		{classify.ViewTypeCategory, 0, render.Black},
	} {
		f, ok := snap.Frames.Frame(tc.view)
		if !ok {
			t.Fatalf("missing view %q", tc.view)
		}
		if got := f.LitCount(); got != tc.lit {
			t.Errorf("%s: lit = %d, want %d", tc.view, got, tc.lit)
			continue
		}
		if tc.lit > 0 {
			if _, _, c := litPixel(t, f); c != tc.c {
				t.Errorf("%s: color = %+v, want %+v", tc.view, c, tc.c)
			}
		}
	}
}

func TestRunnerSnapshotSkipsUnpropagatable(t *testing.T) {
	catalog, prop := newISSWorld(t)
	ghost := issElement
	ghost.Name = "GHOST"
	ghost.NoradID = 99999
	catalog.AddElements("stations", []sat.Element{ghost})

	r, err := NewRunner(catalog, prop, Options{Projection: wholeEarth()})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	snap, err := r.Snapshot(issElement.Epoch)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := Counts{Considered: 2, Drawn: 1, Skipped: 1}
	if snap.Counts != want {
		t.Errorf("counts = %+v, want %+v", snap.Counts, want)
	}
}

func TestRunnerSnapshotOutOfFrame(t *testing.T) {
	catalog, prop := newISSWorld(t)
	// A 51.6 degree inclination orbit can never pass near the pole, so
	// a narrow grid centered there keeps the ISS out of frame.
	r, err := NewRunner(catalog, prop, Options{
		Projection: projection.Config{
			Mode:         projection.ModeGeocentric,
			Width:        4,
			Height:       4,
			FoVDeg:       1,
			CenterLatDeg: 89,
		},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	snap, err := r.Snapshot(issElement.Epoch)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := Counts{Considered: 1, OutOfFrame: 1}
	if snap.Counts != want {
		t.Errorf("counts = %+v, want %+v", snap.Counts, want)
	}
}

func TestRunnerSnapshotZenithCentersSkyView(t *testing.T) {
	catalog, prop := newISSWorld(t)

	st, err := prop.StateAt(25544, issElement.Epoch)
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	sub := transform.ToGeocentric(st)

	// An observer on the subsatellite point sees the ISS at the zenith,
	// which projects to the exact center of an odd-sized grid.
	r, err := NewRunner(catalog, prop, Options{
		Observer: transform.Observer{
			LatDeg:   sub.LatDeg,
			LonDeg:   sub.LonDeg,
			AreaSlug: "under-iss",
		},
		Projection: projection.Config{
			Mode:   projection.ModeTopocentric,
			Width:  33,
			Height: 17,
			FoVDeg: 140,
		},
		Views: []classify.View{classify.PresenceView(), classify.AltitudeView()},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	snap, err := r.Snapshot(issElement.Epoch)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Counts.Drawn != 1 {
		t.Fatalf("Drawn = %d, want 1 (counts %+v)", snap.Counts.Drawn, snap.Counts)
	}

	presence, _ := snap.Frames.Frame(classify.ViewPresence)
	if c, _ := presence.At(16, 8); c != render.White {
		t.Errorf("presence center = %+v, want white", c)
	}
	// At the zenith the slant range is the altitude itself, so the
	// altitude view paints the low band.
	altitude, _ := snap.Frames.Frame(classify.ViewAltitude)
	if c, _ := altitude.At(16, 8); c != render.Red {
		t.Errorf("altitude center = %+v, want red", c)
	}
}

func TestRunnerDefaultsToDeviceViews(t *testing.T) {
	catalog, prop := newISSWorld(t)
	r, err := NewRunner(catalog, prop, Options{Projection: wholeEarth()})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	want := []string{
		classify.ViewType,
		classify.ViewLaunchAge,
		classify.ViewTypeCategory,
		classify.ViewAltitude,
	}
	got := r.Views()
	if len(got) != len(want) {
		t.Fatalf("Views = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Views[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewRunnerRejectsBadInput(t *testing.T) {
	catalog, prop := newISSWorld(t)
	if _, err := NewRunner(nil, prop, Options{Projection: wholeEarth()}); err == nil {
		t.Error("nil catalog accepted")
	}
	if _, err := NewRunner(catalog, nil, Options{Projection: wholeEarth()}); err == nil {
		t.Error("nil propagator accepted")
	}
	if _, err := NewRunner(catalog, prop, Options{}); err == nil {
		t.Error("zero projection config accepted")
	}
}
