// Command skyplot renders one instant of the catalog as a scatter chart
// of the observer's sky: zenith at the center, horizon at the outer ring,
// points colored by a classification view's rules. Useful for checking a
// tuning or a freshly downloaded catalog without a display attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/orbview/satgrid/internal/celestrak"
	"github.com/orbview/satgrid/internal/classify"
	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/transform"
	"github.com/orbview/satgrid/internal/units"
)

func main() {
	tuningFile := flag.String("tuning", "", "tuning JSON file (built-in defaults when empty)")
	groupsCSV := flag.String("groups", "stations,starlink,weather,gnss", "comma-separated CelesTrak GP groups to plot")
	cacheDir := flag.String("cache-dir", "celestrak-cache", "directory for cached CelesTrak downloads")
	atStr := flag.String("at", "", "instant to plot (RFC3339, default now)")
	viewName := flag.String("view", classify.ViewType, "classification view coloring the points")
	output := flag.String("o", "", "output PNG (defaults to skyplot-<timestamp>.png)")
	flag.Parse()

	at := time.Now().UTC()
	if *atStr != "" {
		t, err := time.Parse(time.RFC3339, *atStr)
		if err != nil {
			log.Fatalf("invalid -at: %v", err)
		}
		at = t.UTC()
	}

	view, ok := classify.ByName(*viewName)
	if !ok {
		log.Fatalf("unknown view %q", *viewName)
	}

	tuning, err := config.LoadTuning(*tuningFile)
	if err != nil {
		log.Fatalf("failed to load tuning: %v", err)
	}
	observer := transform.Observer{
		LatDeg:   tuning.GetObserverLatDeg(),
		LonDeg:   tuning.GetObserverLonDeg(),
		AltKm:    tuning.GetObserverAltKm(),
		AreaSlug: tuning.GetAreaSlug(),
	}

	var groups []string
	for _, g := range strings.Split(*groupsCSV, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}

	client := celestrak.NewClient(celestrak.Options{
		BaseURL:  tuning.GetCelestrakBaseURL(),
		CacheDir: *cacheDir,
		MaxAge:   time.Duration(tuning.GetCatalogMaxAgeHours()) * time.Hour,
	})
	catalog, err := client.LoadCatalog(context.Background(), groups)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	prop := ephem.NewPropagator()
	added, failed := prop.AddCatalog(catalog.Objects())
	if added == 0 {
		log.Fatalf("no propagatable objects in catalog (%d rejected)", failed)
	}

	// One point bucket per rule so the legend names the rules, plus one
	// for objects no rule matches.
	buckets := make([]plotter.XYs, len(view.Rules))
	var unmatched plotter.XYs

	var below, unresolved int
	for _, obj := range catalog.Objects() {
		st, err := prop.StateAt(obj.NoradID, at)
		if err != nil {
			unresolved++
			continue
		}
		top := transform.ToTopocentric(st, observer)
		if !top.AboveHorizon() {
			below++
			continue
		}

		// Zenith-centered polar chart: radius grows as elevation drops.
		r := (90 - top.ElevationDeg) / 90
		az := units.DegToRad(top.AzimuthDeg)
		pt := plotter.XY{X: r * math.Sin(az), Y: r * math.Cos(az)}

		subject := classify.Subject{
			Object:     obj,
			AltitudeKm: projection.AltitudeFromSlantRange(top.RangeKm, top.ElevationDeg),
		}
		matched := false
		for i, rule := range view.Rules {
			if rule.Match(subject) {
				buckets[i] = append(buckets[i], pt)
				matched = true
				break
			}
		}
		if !matched {
			unmatched = append(unmatched, pt)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s view from %s at %s", view.Name, observer.AreaSlug, at.Format(time.RFC3339))
	p.X.Label.Text = "east"
	p.Y.Label.Text = "north"
	p.X.Min, p.X.Max = -1.1, 1.1
	p.Y.Min, p.Y.Max = -1.1, 1.1

	for _, el := range []float64{0, 30, 60} {
		ring, err := elevationRing(el)
		if err != nil {
			log.Fatalf("failed to build elevation ring: %v", err)
		}
		p.Add(ring)
	}

	plotted := 0
	for i, pts := range buckets {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			log.Fatalf("failed to build scatter: %v", err)
		}
		s.GlyphStyle.Color = ink(view.Rules[i].Color)
		s.GlyphStyle.Radius = vg.Points(2.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(view.Rules[i].Name, s)
		plotted += len(pts)
	}
	if len(unmatched) > 0 {
		s, err := plotter.NewScatter(unmatched)
		if err != nil {
			log.Fatalf("failed to build scatter: %v", err)
		}
		s.GlyphStyle.Color = color.RGBA{R: 190, G: 190, B: 190, A: 255}
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("unclassified", s)
		plotted += len(unmatched)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("skyplot-%s.png", at.Format("20060102-150405"))
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, filename); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}

	fmt.Printf("plotted %d objects above the horizon (%d below, %d unresolved) to %s\n",
		plotted, below, unresolved, filename)
}

// elevationRing draws the circle of constant elevation, 0 for the horizon.
func elevationRing(elDeg float64) (*plotter.Line, error) {
	r := (90 - elDeg) / 90
	pts := make(plotter.XYs, 0, 73)
	for a := 0.0; a <= 360; a += 5 {
		rad := units.DegToRad(a)
		pts = append(pts, plotter.XY{X: r * math.Sin(rad), Y: r * math.Cos(rad)})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	line.Width = vg.Points(0.5)
	return line, nil
}

// ink maps a display color to a plottable one. White would vanish on the
// chart background, so it renders dark gray.
func ink(c render.Color) color.Color {
	switch c {
	case render.Red:
		return color.RGBA{R: 204, A: 255}
	case render.Green:
		return color.RGBA{G: 153, A: 255}
	case render.Blue:
		return color.RGBA{B: 204, A: 255}
	}
	return color.RGBA{R: 64, G: 64, B: 64, A: 255}
}
