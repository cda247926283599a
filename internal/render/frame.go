// Package render provides the in-memory frame buffer that tracking
// snapshots are painted into before upload to a display device.
package render

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Color is an 8-bit-per-channel RGB color.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Named colors used by the classification views.
var (
	Black = Color{0, 0, 0}
	Red   = Color{255, 0, 0}
	Green = Color{0, 255, 0}
	Blue  = Color{0, 0, 255}
	White = Color{255, 255, 255}
)

// IsBlack reports whether the color is fully off.
func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Hex returns the color as a 6-digit lowercase hex string.
func (c Color) Hex() string {
	return hex.EncodeToString([]byte{c.R, c.G, c.B})
}

// PixelWrite pairs a grid position with the color written there.
type PixelWrite struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// Frame is a fixed-size RGB pixel grid. X runs left to right, Y runs top
// to bottom, matching the device scan order. The zero color is off.
type Frame struct {
	width  int
	height int
	cells  []Color
}

// NewFrame creates a cleared frame of the given dimensions.
func NewFrame(width, height int) (*Frame, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("frame dimensions must be positive, got %dx%d", width, height)
	}
	return &Frame{
		width:  width,
		height: height,
		cells:  make([]Color, width*height),
	}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Set writes a color at (x, y), overwriting whatever was there. Writes
// outside the grid are dropped; the return value reports whether the
// write landed.
func (f *Frame) Set(x, y int, c Color) bool {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return false
	}
	f.cells[y*f.width+x] = c
	return true
}

// At returns the color at (x, y). The second return value is false for
// positions outside the grid.
func (f *Frame) At(x, y int) (Color, bool) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return Color{}, false
	}
	return f.cells[y*f.width+x], true
}

// Clear resets every cell to black.
func (f *Frame) Clear() {
	for i := range f.cells {
		f.cells[i] = Color{}
	}
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		width:  f.width,
		height: f.height,
		cells:  make([]Color, len(f.cells)),
	}
	copy(out.cells, f.cells)
	return out
}

// Equal reports whether two frames have identical dimensions and cells.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.width != other.width || f.height != other.height {
		return false
	}
	for i := range f.cells {
		if f.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// LitCount returns the number of cells that are not black.
func (f *Frame) LitCount() int {
	n := 0
	for _, c := range f.cells {
		if !c.IsBlack() {
			n++
		}
	}
	return n
}

// Diff returns the pixel writes needed to turn prev into next, in row-major
// order. A nil prev is treated as an all-black frame the same size as next,
// which matches a device that was just cleared.
func Diff(prev, next *Frame) ([]PixelWrite, error) {
	if next == nil {
		return nil, fmt.Errorf("next frame must not be nil")
	}
	if prev != nil && (prev.width != next.width || prev.height != next.height) {
		return nil, fmt.Errorf("frame dimensions differ: %dx%d vs %dx%d",
			prev.width, prev.height, next.width, next.height)
	}

	var writes []PixelWrite
	for y := 0; y < next.height; y++ {
		for x := 0; x < next.width; x++ {
			c := next.cells[y*next.width+x]
			if prev == nil {
				if c.IsBlack() {
					continue
				}
			} else if prev.cells[y*prev.width+x] == c {
				continue
			}
			writes = append(writes, PixelWrite{X: x, Y: y, Color: c})
		}
	}
	return writes, nil
}

// frameJSON is the serialized form of a Frame. Rows are hex strings with
// six characters per cell so cached frames stay diffable and compact.
type frameJSON struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Rows   []string `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (f *Frame) MarshalJSON() ([]byte, error) {
	rows := make([]string, f.height)
	var b strings.Builder
	for y := 0; y < f.height; y++ {
		b.Reset()
		for x := 0; x < f.width; x++ {
			b.WriteString(f.cells[y*f.width+x].Hex())
		}
		rows[y] = b.String()
	}
	return json.Marshal(frameJSON{Width: f.width, Height: f.height, Rows: rows})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw frameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Width < 1 || raw.Height < 1 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", raw.Width, raw.Height)
	}
	if len(raw.Rows) != raw.Height {
		return fmt.Errorf("frame has %d rows, want %d", len(raw.Rows), raw.Height)
	}
	cells := make([]Color, raw.Width*raw.Height)
	for y, row := range raw.Rows {
		if len(row) != raw.Width*6 {
			return fmt.Errorf("row %d has %d hex chars, want %d", y, len(row), raw.Width*6)
		}
		decoded, err := hex.DecodeString(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
		for x := 0; x < raw.Width; x++ {
			cells[y*raw.Width+x] = Color{decoded[x*3], decoded[x*3+1], decoded[x*3+2]}
		}
	}
	f.width = raw.Width
	f.height = raw.Height
	f.cells = cells
	return nil
}
