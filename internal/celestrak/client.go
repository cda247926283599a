// Package celestrak fetches orbital element groups and the satellite
// catalog from CelesTrak, with an on-disk cache so the tracker keeps
// working across restarts and network outages.
package celestrak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/orbview/satgrid/internal/fsutil"
	"github.com/orbview/satgrid/internal/httputil"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/sat"
	"github.com/orbview/satgrid/internal/security"
	"github.com/orbview/satgrid/internal/timeutil"
)

const (
	// DefaultBaseURL is the CelesTrak origin.
	DefaultBaseURL = "https://celestrak.org"
	// DefaultMaxAge is how long cached downloads stay fresh.
	DefaultMaxAge = 24 * time.Hour

	// maxDownloadSize caps response reads. The full SATCAT is around
	// 20MB; anything past this is a server problem, not data.
	maxDownloadSize = 128 * 1024 * 1024
)

// Options configures a Client. Zero-value fields get defaults.
type Options struct {
	HTTPClient httputil.HTTPClient
	FileSystem fsutil.FileSystem
	Clock      timeutil.Clock
	BaseURL    string
	CacheDir   string
	MaxAge     time.Duration
}

// Client downloads CelesTrak data with caching.
type Client struct {
	http     httputil.HTTPClient
	fs       fsutil.FileSystem
	clock    timeutil.Clock
	baseURL  string
	cacheDir string
	maxAge   time.Duration
}

// NewClient creates a CelesTrak client.
func NewClient(opts Options) *Client {
	c := &Client{
		http:     opts.HTTPClient,
		fs:       opts.FileSystem,
		clock:    opts.Clock,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		cacheDir: opts.CacheDir,
		maxAge:   opts.MaxAge,
	}
	if c.http == nil {
		c.http = httputil.NewStandardClient(&http.Client{Timeout: 60 * time.Second})
	}
	if c.fs == nil {
		c.fs = fsutil.OSFileSystem{}
	}
	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.cacheDir == "" {
		c.cacheDir = "celestrak-cache"
	}
	if c.maxAge <= 0 {
		c.maxAge = DefaultMaxAge
	}
	return c
}

// GroupElements returns the parsed elements for a CelesTrak GP group,
// from cache when fresh, otherwise fetched. A failed fetch falls back to
// stale cache when one exists.
func (c *Client) GroupElements(ctx context.Context, group string) ([]sat.Element, error) {
	name := "gp-" + security.SanitizeFilename(group) + ".tle"
	u := fmt.Sprintf("%s/NORAD/elements/gp.php?GROUP=%s&FORMAT=tle", c.baseURL, url.QueryEscape(group))

	data, err := c.cachedFetch(ctx, name, u)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %q: %w", group, err)
	}

	elems, skipped, err := sat.ParseTLE(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse group %q: %w", group, err)
	}
	if skipped > 0 {
		monitoring.Logf("celestrak: group %q had %d malformed entries", group, skipped)
	}
	return elems, nil
}

// Satcat returns SATCAT metadata keyed by catalog number, using the same
// cache policy as GroupElements.
func (c *Client) Satcat(ctx context.Context) (map[uint64]sat.CatalogEntry, error) {
	data, err := c.cachedFetch(ctx, "satcat.csv", c.baseURL+"/pub/satcat.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to load SATCAT: %w", err)
	}
	entries, err := sat.ParseSatcat(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SATCAT: %w", err)
	}
	return entries, nil
}

// LoadCatalog builds a catalog from the named groups and overlays SATCAT
// metadata. Individual group failures are logged and tolerated; the error
// is non-nil only when no group could be loaded at all.
func (c *Client) LoadCatalog(ctx context.Context, groups []string) (*sat.Catalog, error) {
	catalog := sat.NewCatalog()
	loaded := 0
	for _, group := range groups {
		elems, err := c.GroupElements(ctx, group)
		if err != nil {
			monitoring.Logf("celestrak: %v", err)
			continue
		}
		catalog.AddElements(group, elems)
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no element groups available (tried %d)", len(groups))
	}

	entries, err := c.Satcat(ctx)
	if err != nil {
		monitoring.Logf("celestrak: proceeding without SATCAT metadata: %v", err)
	} else {
		catalog.ApplySatcat(entries)
	}

	monitoring.Logf("celestrak: catalog loaded with %d objects from %d/%d groups",
		catalog.Len(), loaded, len(groups))
	return catalog, nil
}

// cacheMeta records when a cached download was fetched.
type cacheMeta struct {
	FetchedAt time.Time `json:"fetched_at"`
	URL       string    `json:"url"`
}

// cachedFetch returns the cached copy of name when fresh, otherwise
// downloads from u and refreshes the cache. Stale cache is served when
// the download fails.
func (c *Client) cachedFetch(ctx context.Context, name, u string) ([]byte, error) {
	data, fresh := c.readCache(name)
	if fresh {
		monitoring.Debugf("celestrak: cache hit for %s", name)
		return data, nil
	}

	fetched, err := c.fetch(ctx, u)
	if err != nil {
		if data != nil {
			monitoring.Logf("celestrak: fetch of %s failed, serving stale cache: %v", name, err)
			return data, nil
		}
		return nil, err
	}

	if err := c.writeCache(name, u, fetched); err != nil {
		monitoring.Logf("celestrak: failed to cache %s: %v", name, err)
	}
	return fetched, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// readCache returns cached data for name and whether it is still fresh.
// Data with missing or unreadable metadata counts as stale.
func (c *Client) readCache(name string) (data []byte, fresh bool) {
	path := filepath.Join(c.cacheDir, name)
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, false
	}

	metaRaw, err := c.fs.ReadFile(path + ".meta.json")
	if err != nil {
		return data, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return data, false
	}
	return data, c.clock.Now().Sub(meta.FetchedAt) <= c.maxAge
}

func (c *Client) writeCache(name, u string, data []byte) error {
	if err := c.fs.MkdirAll(c.cacheDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.cacheDir, name)
	if err := c.fs.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	metaRaw, err := json.Marshal(cacheMeta{FetchedAt: c.clock.Now(), URL: u})
	if err != nil {
		return err
	}
	return c.fs.WriteFile(path+".meta.json", metaRaw, 0o644)
}
