package render

import (
	"errors"
	"fmt"
)

// MultiFrame holds one frame per named view so a single placement pass can
// paint all views at once. View names keep their construction order.
type MultiFrame struct {
	names  []string
	frames map[string]*Frame
}

// NewMultiFrame builds an empty frame for every view name.
func NewMultiFrame(names []string, width, height int) (*MultiFrame, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one view is required")
	}
	m := &MultiFrame{
		names:  append([]string(nil), names...),
		frames: make(map[string]*Frame, len(names)),
	}
	for _, n := range names {
		if _, dup := m.frames[n]; dup {
			return nil, fmt.Errorf("duplicate view %q", n)
		}
		f, err := NewFrame(width, height)
		if err != nil {
			return nil, err
		}
		m.frames[n] = f
	}
	return m, nil
}

// Views returns the view names in construction order.
func (m *MultiFrame) Views() []string {
	return append([]string(nil), m.names...)
}

// Set colors a pixel in one view. It reports false for unknown views and
// out-of-range coordinates.
func (m *MultiFrame) Set(view string, x, y int, c Color) bool {
	f, ok := m.frames[view]
	if !ok {
		return false
	}
	return f.Set(x, y, c)
}

// Frame returns the frame for a view.
func (m *MultiFrame) Frame(view string) (*Frame, bool) {
	f, ok := m.frames[view]
	return f, ok
}
