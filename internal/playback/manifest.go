package playback

import (
	"fmt"
	"time"

	"github.com/orbview/satgrid/internal/config"
)

// Manifest describes one baked cache: the area it was rendered for, the
// wall-clock window it covers, and which classification views it carries.
type Manifest struct {
	// ID is assigned at bake time and carried into the upload journal.
	ID string `json:"id"`

	// AreaSlug names the observer area the frames were rendered for.
	AreaSlug string `json:"area_slug"`

	// GeneratedAt is the host time the cache was baked. The host is the
	// time authority at upload; the device trusts its own clock after.
	GeneratedAt time.Time `json:"generated_at"`

	// WindowStart and WindowEnd bound the interval the frame sequence
	// covers. The window is half-open: [start, end).
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	// FrameIntervalMS is the playback cadence. Zero selects the default
	// of one frame per second.
	FrameIntervalMS int64 `json:"frame_interval_ms"`

	// LoopPeriodMS is how long a tier loops its sequence before tier
	// freshness is re-evaluated. Zero selects the span the sequence
	// covers.
	LoopPeriodMS int64 `json:"loop_period_ms"`

	// Views lists view names in device button order.
	Views []string `json:"views"`

	// FrameCount is the length of every view's frame sequence.
	FrameCount int `json:"frame_count"`
}

// Validate rejects manifests that cannot describe a playable cache.
func (m Manifest) Validate() error {
	if m.AreaSlug == "" {
		return fmt.Errorf("manifest missing area slug")
	}
	if m.FrameCount < 1 {
		return fmt.Errorf("manifest frame count must be positive, got %d", m.FrameCount)
	}
	if len(m.Views) == 0 {
		return fmt.Errorf("manifest lists no views")
	}
	seen := make(map[string]bool, len(m.Views))
	for _, v := range m.Views {
		if v == "" {
			return fmt.Errorf("manifest contains an empty view name")
		}
		if seen[v] {
			return fmt.Errorf("manifest lists view %q twice", v)
		}
		seen[v] = true
	}
	if m.WindowEnd.Before(m.WindowStart) {
		return fmt.Errorf("manifest window ends before it starts (%s > %s)",
			m.WindowStart.Format(time.RFC3339), m.WindowEnd.Format(time.RFC3339))
	}
	if m.FrameIntervalMS < 0 {
		return fmt.Errorf("manifest frame interval must not be negative, got %d", m.FrameIntervalMS)
	}
	if m.LoopPeriodMS < 0 {
		return fmt.Errorf("manifest loop period must not be negative, got %d", m.LoopPeriodMS)
	}
	return nil
}

// FrameInterval is the playback cadence with the default applied.
func (m Manifest) FrameInterval() time.Duration {
	if m.FrameIntervalMS > 0 {
		return time.Duration(m.FrameIntervalMS) * time.Millisecond
	}
	return time.Duration(config.DefaultFrameIntervalMS) * time.Millisecond
}

// Span is the wall-clock interval the sequence covers.
func (m Manifest) Span() time.Duration {
	return m.WindowEnd.Sub(m.WindowStart)
}

// LoopPeriod is how long playback loops before tier freshness is
// re-evaluated. Defaults to the covered span; a degenerate span falls
// back to one full pass of the sequence.
func (m Manifest) LoopPeriod() time.Duration {
	if m.LoopPeriodMS > 0 {
		return time.Duration(m.LoopPeriodMS) * time.Millisecond
	}
	if span := m.Span(); span > 0 {
		return span
	}
	return m.FrameInterval() * time.Duration(m.FrameCount)
}

// CoversTime reports whether t falls inside the half-open window.
func (m Manifest) CoversTime(t time.Time) bool {
	return !t.Before(m.WindowStart) && t.Before(m.WindowEnd)
}
