package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/orbview/satgrid/internal/timeutil"
	"github.com/orbview/satgrid/internal/transform"
)

func TestBakeSeries(t *testing.T) {
	catalog, prop := newISSWorld(t)
	generated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(generated)

	r, err := NewRunner(catalog, prop, Options{
		Observer:   transform.Observer{AreaSlug: "seattle"},
		Projection: wholeEarth(),
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	start := issElement.Epoch
	cache, sum, err := r.BakeSeries(context.Background(), start, 30*time.Second, 4)
	if err != nil {
		t.Fatalf("BakeSeries: %v", err)
	}

	m := cache.Manifest
	if m.ID == "" {
		t.Error("manifest has no ID")
	}
	if m.AreaSlug != "seattle" {
		t.Errorf("AreaSlug = %q, want seattle", m.AreaSlug)
	}
	if !m.GeneratedAt.Equal(generated) {
		t.Errorf("GeneratedAt = %v, want %v", m.GeneratedAt, generated)
	}
	if !m.WindowStart.Equal(start) || !m.WindowEnd.Equal(start.Add(2*time.Minute)) {
		t.Errorf("window = [%v, %v), want [%v, %v)", m.WindowStart, m.WindowEnd, start, start.Add(2*time.Minute))
	}
	if m.FrameIntervalMS != 30000 {
		t.Errorf("FrameIntervalMS = %d, want 30000", m.FrameIntervalMS)
	}
	if m.FrameCount != 4 {
		t.Errorf("FrameCount = %d, want 4", m.FrameCount)
	}
	if len(m.Views) != 4 {
		t.Errorf("Views = %v, want the four device views", m.Views)
	}
	if !m.CoversTime(start) || m.CoversTime(m.WindowEnd) {
		t.Error("window should include its start and exclude its end")
	}
	for _, view := range m.Views {
		if got := len(cache.Frames[view]); got != 4 {
			t.Errorf("view %q has %d frames, want 4", view, got)
		}
	}

	if sum.Frames != 4 || sum.Considered != 4 || sum.Drawn != 4 {
		t.Errorf("summary = %+v, want 4 frames with the ISS drawn in each", sum)
	}
	if sum.Skipped != 0 || sum.OutOfFrame != 0 {
		t.Errorf("summary = %+v, want nothing skipped or out of frame", sum)
	}
	if sum.DrawnMedian != 1 || sum.DrawnP90 != 1 {
		t.Errorf("drawn quantiles = %.1f/%.1f, want 1/1", sum.DrawnMedian, sum.DrawnP90)
	}
	if sum.SkippedMedian != 0 {
		t.Errorf("SkippedMedian = %.1f, want 0", sum.SkippedMedian)
	}
}

func TestBakeSeriesRejectsBadArguments(t *testing.T) {
	catalog, prop := newISSWorld(t)
	r, err := NewRunner(catalog, prop, Options{Projection: wholeEarth()})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx := context.Background()
	if _, _, err := r.BakeSeries(ctx, issElement.Epoch, 30*time.Second, 0); err == nil {
		t.Error("zero frame count accepted")
	}
	if _, _, err := r.BakeSeries(ctx, issElement.Epoch, 0, 3); err == nil {
		t.Error("zero step accepted")
	}
}

func TestBakeSeriesHonorsContext(t *testing.T) {
	catalog, prop := newISSWorld(t)
	r, err := NewRunner(catalog, prop, Options{Projection: wholeEarth()})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := r.BakeSeries(ctx, issElement.Epoch, time.Second, 10); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
