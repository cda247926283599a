// Package playback implements the on-device frame cache: baked frame
// sequences per classification view, a manifest describing the window
// they cover, and the staged all-or-nothing upload that installs them.
package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/orbview/satgrid/internal/classify"
	"github.com/orbview/satgrid/internal/render"
)

// Cache is a loaded playback cache. Frames maps view name to that view's
// ordered frame sequence; all sequences have the same length and share
// one grid size.
type Cache struct {
	Manifest Manifest
	Frames   map[string][]*render.Frame
}

// Verify checks internal consistency: a valid manifest, every declared
// view present with exactly the declared number of frames, and one grid
// size throughout.
func (c *Cache) Verify() error {
	if c == nil {
		return fmt.Errorf("nil cache")
	}
	if err := c.Manifest.Validate(); err != nil {
		return err
	}
	var w, h int
	for _, view := range c.Manifest.Views {
		frames, ok := c.Frames[view]
		if !ok {
			return fmt.Errorf("view %q has no frames", view)
		}
		if len(frames) != c.Manifest.FrameCount {
			return fmt.Errorf("view %q has %d frames, manifest declares %d",
				view, len(frames), c.Manifest.FrameCount)
		}
		for i, f := range frames {
			if f == nil {
				return fmt.Errorf("view %q frame %d is nil", view, i)
			}
			if w == 0 {
				w, h = f.Width(), f.Height()
			}
			if f.Width() != w || f.Height() != h {
				return fmt.Errorf("view %q frame %d is %dx%d, cache is %dx%d",
					view, i, f.Width(), f.Height(), w, h)
			}
		}
	}
	if len(c.Frames) != len(c.Manifest.Views) {
		return fmt.Errorf("cache carries %d views, manifest declares %d",
			len(c.Frames), len(c.Manifest.Views))
	}
	return nil
}

// Frame returns the idx'th frame of the named view, wrapping around the
// sequence so playback loops by incrementing the index forever.
func (c *Cache) Frame(view string, idx int) (*render.Frame, bool) {
	frames, ok := c.Frames[view]
	if !ok || len(frames) == 0 {
		return nil, false
	}
	if idx < 0 {
		idx = 0
	}
	return frames[idx%len(frames)], true
}

// GridSize returns the cache's frame dimensions. Zero values mean the
// cache holds no frames.
func (c *Cache) GridSize() (w, h int) {
	for _, frames := range c.Frames {
		if len(frames) > 0 {
			return frames[0].Width(), frames[0].Height()
		}
	}
	return 0, 0
}

// Shipped fallback geometry.
const (
	fallbackWidth  = 32
	fallbackHeight = 16
	fallbackFrames = 12
)

// BuiltinFallback returns the shipped fallback cache: a synthetic orbit
// trace per device view, generated rather than loaded so untethered tier
// selection can never come up empty.
func BuiltinFallback() *Cache {
	deviceViews := classify.DeviceViews()
	views := make([]string, len(deviceViews))
	for i, v := range deviceViews {
		views[i] = v.Name
	}
	colors := []render.Color{render.Red, render.Green, render.Blue, render.White}

	frames := make(map[string][]*render.Frame, len(views))
	for vi, view := range views {
		seq := make([]*render.Frame, fallbackFrames)
		for i := range seq {
			f, _ := render.NewFrame(fallbackWidth, fallbackHeight)
			// A three-pixel trail sweeping a sine arc, one step per frame.
			for trail := 0; trail < 3; trail++ {
				step := i - trail
				if step < 0 {
					step += fallbackFrames
				}
				x := step * fallbackWidth / fallbackFrames
				y := fallbackHeight/2 + int(float64(fallbackHeight)/3*
					math.Sin(2*math.Pi*float64(step)/fallbackFrames))
				f.Set(x, y, colors[vi%len(colors)])
			}
			seq[i] = f
		}
		frames[view] = seq
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Cache{
		Manifest: Manifest{
			ID:          "builtin-fallback",
			AreaSlug:    "fallback",
			GeneratedAt: start,
			WindowStart: start,
			WindowEnd:   start.Add(fallbackFrames * time.Second),
			Views:       views,
			FrameCount:  fallbackFrames,
		},
		Frames: frames,
	}
}
