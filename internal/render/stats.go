package render

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the pixel population of a frame.
type Stats struct {
	Total            int     `json:"total"`
	Lit              int     `json:"lit"`
	OccupiedFraction float64 `json:"occupied_fraction"`
	// Luminance quantiles over lit pixels, 0 when nothing is lit.
	MedianLuma float64 `json:"median_luma"`
	P90Luma    float64 `json:"p90_luma"`
}

// luma converts a color to perceived brightness in [0, 255].
func luma(c Color) float64 {
	return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
}

// Summarize computes population statistics for a frame. Used by the bake
// tool and the /api/status endpoint to sanity-check rendered output.
func Summarize(f *Frame) Stats {
	s := Stats{Total: len(f.cells)}

	var lumas []float64
	for _, c := range f.cells {
		if c.IsBlack() {
			continue
		}
		s.Lit++
		lumas = append(lumas, luma(c))
	}
	if s.Total > 0 {
		s.OccupiedFraction = float64(s.Lit) / float64(s.Total)
	}
	if len(lumas) > 0 {
		sort.Float64s(lumas)
		s.MedianLuma = stat.Quantile(0.5, stat.Empirical, lumas, nil)
		s.P90Luma = stat.Quantile(0.9, stat.Empirical, lumas, nil)
	}
	return s
}
