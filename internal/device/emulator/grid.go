package emulator

import (
	"sync"

	"github.com/orbview/satgrid/internal/device"
	"github.com/orbview/satgrid/internal/render"
)

// Grid is the emulated LED matrix. Writes outside the matrix bounds are
// clipped silently, matching the behavior of the physical panel driver.
type Grid struct {
	mu    sync.Mutex
	frame *render.Frame
}

var _ device.Display = (*Grid)(nil)

// NewGrid returns a cleared matrix of the given size.
func NewGrid(width, height int) (*Grid, error) {
	f, err := render.NewFrame(width, height)
	if err != nil {
		return nil, err
	}
	return &Grid{frame: f}, nil
}

// SetPixel colors one cell. Out-of-bounds coordinates are dropped.
func (g *Grid) SetPixel(x, y int, c render.Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frame.Set(x, y, c)
}

// Clear resets every cell to the background color.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frame.Clear()
}

// Dimensions reports the matrix size in cells.
func (g *Grid) Dimensions() (w, h int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame.Width(), g.frame.Height()
}

// Paint replaces the matrix contents with the given frame. Pixels beyond
// the matrix bounds are clipped, smaller frames leave the remainder dark.
func (g *Grid) Paint(f *render.Frame) {
	writes, err := render.Diff(nil, f)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frame.Clear()
	for _, w := range writes {
		g.frame.Set(w.X, w.Y, w.Color)
	}
}

// Snapshot returns a copy of the current matrix contents.
func (g *Grid) Snapshot() *render.Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frame.Clone()
}
