// Package pipeline composes the snapshot path: catalog objects are
// propagated, transformed, projected and classified into per-view frames.
//
// This package is the composition root for the rendering side. It imports
// sat, ephem, transform, projection, classify and render; none of those
// import pipeline.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbview/satgrid/internal/classify"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/sat"
	"github.com/orbview/satgrid/internal/timeutil"
	"github.com/orbview/satgrid/internal/transform"
)

// Options holds the dependencies and settings for a Runner.
type Options struct {
	// Observer locates the ground station and names the playback area.
	Observer transform.Observer

	// Projection selects the grid, field of view and coordinate mode.
	Projection projection.Config

	// Views are the classification views rendered per snapshot. Defaults
	// to the four device button views.
	Views []classify.View

	// Clock drives snapshot timing and bake manifests. Defaults to the
	// real clock.
	Clock timeutil.Clock
}

// Runner renders snapshots of a catalog. It is immutable after
// construction and safe for concurrent use.
type Runner struct {
	catalog *sat.Catalog
	prop    *ephem.Propagator
	obs     transform.Observer
	mode    projection.Mode
	mapProj projection.MapProjector
	skyProj projection.SkyProjector
	views   []classify.View
	names   []string
	clock   timeutil.Clock
}

// NewRunner validates the projection config and wires the snapshot path.
func NewRunner(catalog *sat.Catalog, prop *ephem.Propagator, opts Options) (*Runner, error) {
	if catalog == nil || prop == nil {
		return nil, errors.New("catalog and propagator are required")
	}
	grid, err := opts.Projection.Grid()
	if err != nil {
		return nil, fmt.Errorf("projection config rejected: %w", err)
	}

	views := opts.Views
	if len(views) == 0 {
		views = classify.DeviceViews()
	}
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	return &Runner{
		catalog: catalog,
		prop:    prop,
		obs:     opts.Observer,
		mode:    opts.Projection.Mode,
		mapProj: projection.MapProjector{
			Grid:         grid,
			CenterLatDeg: opts.Projection.CenterLatDeg,
			CenterLonDeg: opts.Projection.CenterLonDeg,
		},
		skyProj: projection.SkyProjector{Grid: grid},
		views:   views,
		names:   names,
		clock:   clock,
	}, nil
}

// Views returns the rendered view names in order.
func (r *Runner) Views() []string {
	return append([]string(nil), r.names...)
}

// Observer returns the ground station the runner renders for.
func (r *Runner) Observer() transform.Observer { return r.obs }

// Mode returns the projection frame the runner renders in.
func (r *Runner) Mode() projection.Mode { return r.mode }

// Counts tallies object dispositions for one rendered instant.
type Counts struct {
	// Considered is the catalog size at render time.
	Considered int `json:"considered"`
	// Drawn counts objects that landed on the grid. A view may still
	// leave one unpainted when none of its rules match.
	Drawn int `json:"drawn"`
	// OutOfFrame counts objects projected outside the grid.
	OutOfFrame int `json:"out_of_frame"`
	// Skipped counts objects the model could not propagate to t.
	Skipped int `json:"skipped"`
}

// Snapshot is one rendered instant across all views.
type Snapshot struct {
	ID       string        `json:"id"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Counts   Counts        `json:"counts"`
	Frames   *render.MultiFrame
}

// Snapshot renders every view at instant t. Per-object propagation
// failures are skipped and counted; a snapshot with zero resolvable
// objects is an empty frame set, not an error.
func (r *Runner) Snapshot(t time.Time) (*Snapshot, error) {
	started := r.clock.Now()
	grid := r.skyProj.Grid
	mf, err := render.NewMultiFrame(r.names, grid.Width, grid.Height)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{ID: uuid.NewString(), At: t, Frames: mf}
	for _, obj := range r.catalog.Objects() {
		snap.Counts.Considered++

		st, err := r.prop.StateAt(obj.NoradID, t)
		if err != nil {
			snap.Counts.Skipped++
			monitoring.Debugf("pipeline: %v", err)
			continue
		}

		px, altKm, ok := r.place(st)
		if !ok {
			snap.Counts.OutOfFrame++
			continue
		}
		snap.Counts.Drawn++

		subject := classify.Subject{Object: obj, AltitudeKm: altKm}
		for _, v := range r.views {
			if c, matched := v.Classify(subject); matched {
				mf.Set(v.Name, px.X, px.Y, c)
			}
		}
	}
	snap.Duration = r.clock.Since(started)
	return snap, nil
}

// place runs the transform and projection for one state. The returned
// altitude is what the classification altitude bands key on: geodetic
// altitude on the map view, slant-range-derived altitude on the sky view.
func (r *Runner) place(st ephem.State) (projection.Pixel, float64, bool) {
	if r.mode == projection.ModeTopocentric {
		top := transform.ToTopocentric(st, r.obs)
		px, ok := r.skyProj.Project(top)
		return px, projection.AltitudeFromSlantRange(top.RangeKm, top.ElevationDeg), ok
	}
	geo := transform.ToGeocentric(st)
	px, ok := r.mapProj.Project(geo)
	return px, geo.AltKm, ok
}
