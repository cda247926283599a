package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/orbview/satgrid/internal/fsutil"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/security"
)

// ErrCacheUploadIncomplete marks an upload that did not fully commit.
// Nothing from the attempt is applied; the previous cache stays in place.
var ErrCacheUploadIncomplete = errors.New("cache upload incomplete")

const (
	manifestFile    = "manifest.json"
	framesDir       = "frames"
	liveDirName     = "live"
	fallbackDirName = "fallback"
)

// Store manages playback caches under one root directory, typically a
// device mount point or the emulator's data directory. The live slot
// holds the current upload; the fallback slot holds shipped data.
type Store struct {
	fs   fsutil.FileSystem
	root string
}

// NewStore returns a store rooted at dir. A nil filesystem selects the
// real one.
func NewStore(fs fsutil.FileSystem, dir string) *Store {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Store{fs: fs, root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) liveDir() string     { return filepath.Join(s.root, liveDirName) }
func (s *Store) fallbackDir() string { return filepath.Join(s.root, fallbackDirName) }

func viewFile(dir, view string) string {
	return filepath.Join(dir, framesDir, security.SanitizeFilename(view)+".json")
}

// Upload installs a cache into the live slot and returns the upload
// session ID. The cache is staged beside the live directory, verified by
// reading the staged copy back, and renamed into place, so a failure at
// any point leaves the previous upload untouched and playable.
func (s *Store) Upload(c *Cache) (string, error) {
	sessionID := uuid.NewString()

	if err := c.Verify(); err != nil {
		return sessionID, fmt.Errorf("cache failed verification: %v: %w", err, ErrCacheUploadIncomplete)
	}

	staging := filepath.Join(s.root, "staging-"+sessionID)
	if err := security.ValidatePathWithinDirectory(staging, s.root); err != nil {
		return sessionID, fmt.Errorf("staging path rejected: %v: %w", err, ErrCacheUploadIncomplete)
	}

	if err := s.writeCacheDir(c, staging); err != nil {
		s.fs.RemoveAll(staging)
		return sessionID, fmt.Errorf("failed to stage cache: %v: %w", err, ErrCacheUploadIncomplete)
	}

	// Read the staged copy back before committing. A cache that cannot
	// be decoded must never replace one that can.
	if _, err := s.LoadDir(staging); err != nil {
		s.fs.RemoveAll(staging)
		return sessionID, fmt.Errorf("staged cache failed verification: %v: %w", err, ErrCacheUploadIncomplete)
	}

	if err := s.commit(staging); err != nil {
		s.fs.RemoveAll(staging)
		return sessionID, fmt.Errorf("failed to commit cache: %v: %w", err, ErrCacheUploadIncomplete)
	}

	monitoring.Logf("playback: installed cache %s for %s (%d frames x %d views)",
		c.Manifest.ID, c.Manifest.AreaSlug, c.Manifest.FrameCount, len(c.Manifest.Views))
	return sessionID, nil
}

// commit swaps the staged directory into the live slot. The previous
// upload is retired first and restored if the swap fails.
func (s *Store) commit(staging string) error {
	live := s.liveDir()
	if !s.fs.Exists(live) {
		return s.fs.Rename(staging, live)
	}

	retired := live + ".old"
	s.fs.RemoveAll(retired)
	if err := s.fs.Rename(live, retired); err != nil {
		return fmt.Errorf("failed to retire previous upload: %v", err)
	}
	if err := s.fs.Rename(staging, live); err != nil {
		if rbErr := s.fs.Rename(retired, live); rbErr != nil {
			monitoring.Logf("playback: rollback failed, previous upload stranded at %s: %v", retired, rbErr)
		}
		return fmt.Errorf("failed to install staged cache: %v", err)
	}
	if err := s.fs.RemoveAll(retired); err != nil {
		monitoring.Debugf("playback: failed to remove retired upload: %v", err)
	}
	return nil
}

func (s *Store) writeCacheDir(c *Cache, dir string) error {
	if err := s.fs.MkdirAll(filepath.Join(dir, framesDir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %v", dir, err)
	}

	manifest, err := json.MarshalIndent(c.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %v", err)
	}
	if err := s.fs.WriteFile(filepath.Join(dir, manifestFile), manifest, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %v", err)
	}

	for _, view := range c.Manifest.Views {
		data, err := json.Marshal(c.Frames[view])
		if err != nil {
			return fmt.Errorf("failed to encode view %q: %v", view, err)
		}
		if err := s.fs.WriteFile(viewFile(dir, view), data, 0o644); err != nil {
			return fmt.Errorf("failed to write view %q: %v", view, err)
		}
	}
	return nil
}

// LoadDir reads and verifies the cache stored in dir.
func (s *Store) LoadDir(dir string) (*Cache, error) {
	data, err := s.fs.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %v", err)
	}

	c := &Cache{Manifest: m, Frames: make(map[string][]*render.Frame, len(m.Views))}
	for _, view := range m.Views {
		data, err := s.fs.ReadFile(viewFile(dir, view))
		if err != nil {
			return nil, fmt.Errorf("failed to read view %q: %v", view, err)
		}
		var frames []*render.Frame
		if err := json.Unmarshal(data, &frames); err != nil {
			return nil, fmt.Errorf("failed to decode view %q: %v", view, err)
		}
		c.Frames[view] = frames
	}

	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

// InstallFallback writes a cache into the fallback slot. Shipped data
// goes through the same verification as an upload.
func (s *Store) InstallFallback(c *Cache) error {
	if err := c.Verify(); err != nil {
		return fmt.Errorf("fallback cache failed verification: %v", err)
	}
	dir := s.fallbackDir()
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear fallback slot: %v", err)
	}
	if err := s.writeCacheDir(c, dir); err != nil {
		return fmt.Errorf("failed to write fallback: %v", err)
	}
	return nil
}

// SelectCache returns the best cache available for a device at home in
// area at time now, with its derived tier. Selection never fails: an
// upload for the wrong area, a corrupt upload, or no upload at all falls
// through to the installed fallback, and a missing fallback falls through
// to the built-in shipped cache.
func (s *Store) SelectCache(area string, now time.Time) (*Cache, Tier) {
	if c, err := s.LoadDir(s.liveDir()); err == nil {
		if tier := SelectTier(c.Manifest, area, now); tier != TierFallback {
			return c, tier
		}
		monitoring.Debugf("playback: uploaded cache is for area %q, not %q", c.Manifest.AreaSlug, area)
	} else if s.fs.Exists(s.liveDir()) {
		monitoring.Logf("playback: uploaded cache unusable: %v", err)
	}

	if c, err := s.LoadDir(s.fallbackDir()); err == nil {
		return c, TierFallback
	}

	return BuiltinFallback(), TierFallback
}
