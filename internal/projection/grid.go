// Package projection maps coordinates onto the fixed pixel grid of a
// display. Two projections are supported: a plate-carree map around a
// geographic center and an overhead sky view around the observer zenith.
package projection

import (
	"fmt"
	"math"
)

// Pixel is a grid position. X runs east (left to right), Y runs south
// (top to bottom), so north is up.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is a display raster with square cells of known angular size.
type Grid struct {
	Width   int
	Height  int
	CellDeg float64
}

// NewGrid builds a grid whose cell size makes the rectangle cover the same
// solid angle as a circular field of view of the given diameter: the grid
// diagonal spans 2/sqrt(pi) times the field of view.
func NewGrid(width, height int, fovDeg float64) (Grid, error) {
	if width < 1 || height < 1 {
		return Grid{}, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	if fovDeg <= 0 || fovDeg >= 360 {
		return Grid{}, fmt.Errorf("field of view must be in (0, 360), got %g", fovDeg)
	}
	cell := math.Sqrt(4 * fovDeg * fovDeg / (math.Pi * float64(width*width+height*height)))
	return Grid{Width: width, Height: height, CellDeg: cell}, nil
}

// SpanXDeg returns the angular width covered by the grid.
func (g Grid) SpanXDeg() float64 { return g.CellDeg * float64(g.Width) }

// SpanYDeg returns the angular height covered by the grid.
func (g Grid) SpanYDeg() float64 { return g.CellDeg * float64(g.Height) }

// midX is the fractional center column. For even widths it falls between
// the two middle columns.
func (g Grid) midX() float64 { return float64(g.Width-1) / 2 }

// midY is the fractional center row.
func (g Grid) midY() float64 { return float64(g.Height-1) / 2 }

// place converts angular offsets from the grid center into a pixel.
// dxDeg grows eastward, dyDeg grows northward; rows count down from the
// top so a positive dyDeg decreases Y.
func (g Grid) place(dxDeg, dyDeg float64) (Pixel, bool) {
	x := int(math.Round(g.midX() + dxDeg/g.CellDeg))
	y := int(math.Round(g.midY() - dyDeg/g.CellDeg))
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return Pixel{}, false
	}
	return Pixel{X: x, Y: y}, true
}
