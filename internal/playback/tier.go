package playback

import "time"

// Tier is the freshness class of a cache relative to a device's home
// area and current time. It is derived at selection time, never stored.
type Tier int

const (
	// TierLive means the cache matches the device's home area and its
	// window covers the current time.
	TierLive Tier = iota
	// TierSameAreaStale means the area matches but the window has
	// passed; playback replays from the window start.
	TierSameAreaStale
	// TierFallback means arbitrary data, either another area's cache or
	// the shipped fallback.
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierLive:
		return "live"
	case TierSameAreaStale:
		return "same-area-stale"
	case TierFallback:
		return "fallback"
	}
	return "unknown"
}

// SelectTier derives the freshness tier of a manifest for a device whose
// home area is areaSlug at time now.
func SelectTier(m Manifest, areaSlug string, now time.Time) Tier {
	if m.AreaSlug != "" && m.AreaSlug == areaSlug {
		if m.CoversTime(now) {
			return TierLive
		}
		return TierSameAreaStale
	}
	return TierFallback
}

// StartIndex returns the frame index playback begins at. A live cache
// starts on the frame covering now; stale and fallback playback replays
// from the window start.
func StartIndex(m Manifest, tier Tier, now time.Time) int {
	if tier != TierLive || m.FrameCount < 1 {
		return 0
	}
	offset := int(now.Sub(m.WindowStart) / m.FrameInterval())
	if offset < 0 {
		return 0
	}
	return offset % m.FrameCount
}
