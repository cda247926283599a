package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
)

// EncodePNG writes the frame as a PNG image, scaling each grid cell up to
// a scale x scale block of image pixels. A scale of 1 produces one image
// pixel per cell.
func EncodePNG(w io.Writer, f *Frame, scale int) error {
	if f == nil {
		return fmt.Errorf("frame must not be nil")
	}
	if scale < 1 {
		return fmt.Errorf("scale must be positive, got %d", scale)
	}

	img := image.NewNRGBA(image.Rect(0, 0, f.width*scale, f.height*scale))
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			c := f.cells[y*f.width+x]
			nrgba := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					img.SetNRGBA(x*scale+dx, y*scale+dy, nrgba)
				}
			}
		}
	}
	return png.Encode(w, img)
}
