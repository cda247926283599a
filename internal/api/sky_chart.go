package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/orbview/satgrid/internal/transform"
)

// echartsAssetsHost serves the echarts JS bundle for the debug charts.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// showSkyChart renders a quick scatter plot (HTML) of the sky above the
// observer using go-echarts. This is a debugging-only endpoint (no auth)
// to eyeball the projection without a device attached. The zenith sits at
// the origin, the horizon is the ring at radius 90, north is up, and
// points are colored by altitude.
// Query params:
//   - max_points (optional; default 4000) to reduce payload size
//   - below_horizon=true (optional) to include objects below the horizon
func (s *Server) showSkyChart(w http.ResponseWriter, r *http.Request) {
	maxPoints := 4000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	includeBelow := r.URL.Query().Get("below_horizon") == "true"

	now := s.clock.Now()
	obs := s.runner.Observer()
	objects := s.catalog.Objects()
	if len(objects) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "catalog is empty")
		return
	}

	// Downsample by stride to stay within maxPoints
	stride := 1
	if len(objects) > maxPoints {
		stride = int(math.Ceil(float64(len(objects)) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, len(objects)/stride+1)
	maxAltKm := 0.0
	above := 0
	for i := 0; i < len(objects); i += stride {
		o := objects[i]
		st, err := s.prop.StateAt(o.NoradID, now)
		if err != nil {
			continue
		}
		top := transform.ToTopocentric(st, obs)
		if top.AboveHorizon() {
			above++
		} else if !includeBelow {
			continue
		}

		zenithDeg := 90 - top.ElevationDeg
		theta := top.AzimuthDeg * math.Pi / 180.0
		x := zenithDeg * math.Sin(theta)
		y := zenithDeg * math.Cos(theta)

		altKm := transform.ToGeocentric(st).AltKm
		if altKm > maxAltKm {
			maxAltKm = altKm
		}

		data = append(data, opts.ScatterData{Name: o.Name, Value: []interface{}{x, y, altKm}})
	}

	if len(data) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no objects above the horizon")
		return
	}
	if maxAltKm == 0 {
		maxAltKm = 1
	}

	// The horizon ring is at radius 90; below-horizon points reach 180.
	pad := 95.0
	if includeBelow {
		pad = 185.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Satgrid Sky View", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Sky View (Az/El->XY)", Subtitle: fmt.Sprintf("area=%s points=%d above_horizon=%d at=%s", obs.AreaSlug, len(data), above, now.UTC().Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "East (deg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "North (deg)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxAltKm),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("objects", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
