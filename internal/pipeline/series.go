package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/orbview/satgrid/internal/playback"
	"github.com/orbview/satgrid/internal/render"
)

// SeriesSummary aggregates the per-frame counts of a baked series.
type SeriesSummary struct {
	Frames     int `json:"frames"`
	Considered int `json:"considered"`
	Drawn      int `json:"drawn"`
	OutOfFrame int `json:"out_of_frame"`
	Skipped    int `json:"skipped"`

	DrawnMedian   float64 `json:"drawn_median"`
	DrawnP90      float64 `json:"drawn_p90"`
	SkippedMedian float64 `json:"skipped_median"`
	SkippedP90    float64 `json:"skipped_p90"`
}

// BakeSeries renders count snapshots spaced step apart starting at start
// and packages them as an uploadable cache. The manifest window is
// half-open [start, start+count*step) so playback loops with no gap or
// double-shown frame at the seam.
func (r *Runner) BakeSeries(ctx context.Context, start time.Time, step time.Duration, count int) (*playback.Cache, SeriesSummary, error) {
	var sum SeriesSummary
	if count < 1 {
		return nil, sum, errors.New("series needs at least one frame")
	}
	if step <= 0 {
		return nil, sum, errors.New("frame step must be positive")
	}

	frames := make(map[string][]*render.Frame, len(r.names))
	for _, name := range r.names {
		frames[name] = make([]*render.Frame, 0, count)
	}
	drawn := make([]float64, 0, count)
	skipped := make([]float64, 0, count)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, sum, err
		}
		snap, err := r.Snapshot(start.Add(time.Duration(i) * step))
		if err != nil {
			return nil, sum, fmt.Errorf("frame %d: %w", i, err)
		}
		for _, name := range r.names {
			f, _ := snap.Frames.Frame(name)
			frames[name] = append(frames[name], f)
		}
		sum.Frames++
		sum.Considered += snap.Counts.Considered
		sum.Drawn += snap.Counts.Drawn
		sum.OutOfFrame += snap.Counts.OutOfFrame
		sum.Skipped += snap.Counts.Skipped
		drawn = append(drawn, float64(snap.Counts.Drawn))
		skipped = append(skipped, float64(snap.Counts.Skipped))
	}

	sort.Float64s(drawn)
	sort.Float64s(skipped)
	sum.DrawnMedian = stat.Quantile(0.5, stat.Empirical, drawn, nil)
	sum.DrawnP90 = stat.Quantile(0.9, stat.Empirical, drawn, nil)
	sum.SkippedMedian = stat.Quantile(0.5, stat.Empirical, skipped, nil)
	sum.SkippedP90 = stat.Quantile(0.9, stat.Empirical, skipped, nil)

	cache := &playback.Cache{
		Manifest: playback.Manifest{
			ID:              uuid.NewString(),
			AreaSlug:        r.obs.AreaSlug,
			GeneratedAt:     r.clock.Now(),
			WindowStart:     start,
			WindowEnd:       start.Add(time.Duration(count) * step),
			FrameIntervalMS: step.Milliseconds(),
			Views:           append([]string(nil), r.names...),
			FrameCount:      count,
		},
		Frames: frames,
	}
	if err := cache.Verify(); err != nil {
		return nil, sum, fmt.Errorf("baked cache inconsistent: %w", err)
	}
	return cache, sum, nil
}
