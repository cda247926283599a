// Package device implements the host side of the display wire protocol:
// the command codec and the tethered session state machine that streams
// frames over a serial mux.
package device

import "github.com/orbview/satgrid/internal/render"

// Display is the capability surface of a pixel-grid output. Anything that
// can set pixels, clear, and report its size can be driven by the
// rendering pipeline without knowing which hardware sits behind it.
type Display interface {
	SetPixel(x, y int, c render.Color)
	Clear()
	Dimensions() (w, h int)
}

// ButtonReader is implemented by displays that carry a physical
// view-select button. ButtonPressed reports the selected view index and
// whether a press was pending since the last poll.
type ButtonReader interface {
	ButtonPressed() (int, bool)
}
