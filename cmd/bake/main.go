// Command bake renders a window of snapshots into a playback cache and
// installs it on a display data directory, either the live upload slot
// or the fallback slot. Live uploads are journaled in the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orbview/satgrid/internal/celestrak"
	"github.com/orbview/satgrid/internal/classify"
	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/db"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/pipeline"
	"github.com/orbview/satgrid/internal/playback"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/transform"
	"github.com/orbview/satgrid/internal/units"
)

var shells = map[string]units.Orbit{
	"vleo":     units.OrbitVLEO,
	"starlink": units.OrbitStarlink,
	"leo":      units.OrbitLEO,
	"geo":      units.OrbitGEO,
}

func main() {
	var outDir string
	var dbFile string
	var tuningFile string
	var groupsCSV string
	var cacheDir string
	var modeName string
	var shellName string
	var startStr string
	var step time.Duration
	var frames int
	var fallback bool

	flag.StringVar(&outDir, "out", "", "display mount or emulator data directory to install into")
	flag.StringVar(&dbFile, "db", "satgrid.db", "path to sqlite db for the upload journal")
	flag.StringVar(&tuningFile, "tuning", "", "tuning JSON file (built-in defaults when empty)")
	flag.StringVar(&groupsCSV, "groups", "stations,starlink,oneweb,iridium-NEXT,geo,weather,noaa,gnss,gps-ops,galileo", "comma-separated CelesTrak GP groups to bake")
	flag.StringVar(&cacheDir, "cache-dir", "celestrak-cache", "directory for cached CelesTrak downloads")
	flag.StringVar(&modeName, "mode", "geocentric", "projection mode: topocentric or geocentric")
	flag.StringVar(&shellName, "shell", "starlink", "orbit shell for field-of-view conversion")
	flag.StringVar(&startStr, "start", "", "window start (RFC3339, default now)")
	flag.DurationVar(&step, "step", time.Second, "time between frames")
	flag.IntVar(&frames, "frames", 300, "number of frames to bake")
	flag.BoolVar(&fallback, "fallback", false, "install into the fallback slot with the all-white presence rules")
	flag.Parse()

	if outDir == "" {
		log.Fatal("output directory is required (-out)")
	}

	start := time.Now().UTC()
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
		start = t.UTC()
	}

	tuning, err := config.LoadTuning(tuningFile)
	if err != nil {
		log.Fatalf("failed to load tuning: %v", err)
	}

	mode := projection.Mode(strings.ToLower(modeName))
	if mode != projection.ModeTopocentric && mode != projection.ModeGeocentric {
		log.Fatalf("unknown projection mode %q, want topocentric or geocentric", modeName)
	}
	shell, ok := shells[strings.ToLower(shellName)]
	if !ok {
		log.Fatalf("unknown orbit shell %q, want vleo, starlink, leo or geo", shellName)
	}

	var groups []string
	for _, g := range strings.Split(groupsCSV, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		log.Fatal("at least one CelesTrak group is required")
	}

	// The tuning's field of view is measured from the observer; a baked
	// map view needs the Earth-centred span the shell subtends instead.
	fov := tuning.GetFieldOfViewDeg()
	if mode == projection.ModeGeocentric && tuning.GetFoVReference() == config.FoVReferenceObserver {
		fov = projection.ObserverToOriginFoV(fov, shell.AltitudeKm())
	}

	// The fallback plays on every device button, so the all-white presence
	// rules are baked under each button view's name.
	var views []classify.View
	if fallback {
		presence := classify.PresenceView()
		for _, v := range classify.DeviceViews() {
			views = append(views, classify.View{Name: v.Name, Rules: presence.Rules})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := celestrak.NewClient(celestrak.Options{
		BaseURL:  tuning.GetCelestrakBaseURL(),
		CacheDir: cacheDir,
		MaxAge:   time.Duration(tuning.GetCatalogMaxAgeHours()) * time.Hour,
	})
	catalog, err := client.LoadCatalog(ctx, groups)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	prop := ephem.NewPropagator()
	added, failed := prop.AddCatalog(catalog.Objects())
	if added == 0 {
		log.Fatalf("no propagatable objects in catalog (%d rejected)", failed)
	}
	fmt.Printf("catalog ready: %d objects propagatable, %d rejected\n", added, failed)

	runner, err := pipeline.NewRunner(catalog, prop, pipeline.Options{
		Observer: transform.Observer{
			LatDeg:   tuning.GetObserverLatDeg(),
			LonDeg:   tuning.GetObserverLonDeg(),
			AltKm:    tuning.GetObserverAltKm(),
			AreaSlug: tuning.GetAreaSlug(),
		},
		Projection: projection.Config{
			Mode:         mode,
			Width:        tuning.GetGridWidth(),
			Height:       tuning.GetGridHeight(),
			FoVDeg:       fov,
			CenterLatDeg: tuning.GetObserverLatDeg(),
			CenterLonDeg: tuning.GetObserverLonDeg(),
		},
		Views: views,
	})
	if err != nil {
		log.Fatalf("failed to build render pipeline: %v", err)
	}

	fmt.Printf("baking %d frames at %v steps from %s\n", frames, step, start.Format(time.RFC3339))
	cache, sum, err := runner.BakeSeries(ctx, start, step, frames)
	if err != nil {
		log.Fatalf("bake failed: %v", err)
	}

	fmt.Printf("window %s -> %s: considered %d, drawn %d, out of frame %d, skipped %d\n",
		cache.Manifest.WindowStart.Format(time.RFC3339),
		cache.Manifest.WindowEnd.Format(time.RFC3339),
		sum.Considered, sum.Drawn, sum.OutOfFrame, sum.Skipped)
	fmt.Printf("per frame: drawn median %.0f p90 %.0f, skipped median %.0f p90 %.0f\n",
		sum.DrawnMedian, sum.DrawnP90, sum.SkippedMedian, sum.SkippedP90)

	store := playback.NewStore(nil, outDir)

	if fallback {
		if err := store.InstallFallback(cache); err != nil {
			log.Fatalf("fallback install failed: %v", err)
		}
		fmt.Printf("fallback cache %s installed into %s\n", cache.Manifest.ID, outDir)
		return
	}

	session, uploadErr := store.Upload(cache)

	// Journal the attempt either way; a rejected upload is worth a row.
	database, err := db.NewDB(dbFile)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	row := db.Upload{
		SessionID:  session,
		CacheID:    cache.Manifest.ID,
		AreaSlug:   cache.Manifest.AreaSlug,
		FrameCount: cache.Manifest.FrameCount,
		ViewCount:  len(cache.Manifest.Views),
		Status:     db.UploadCommitted,
		At:         time.Now().UTC(),
	}
	if uploadErr != nil {
		row.Status = db.UploadRejected
		row.Detail = uploadErr.Error()
	}
	if err := database.RecordUpload(row); err != nil {
		log.Printf("failed to journal upload: %v", err)
	}

	if uploadErr != nil {
		log.Fatalf("upload failed: %v", uploadErr)
	}
	fmt.Printf("cache %s uploaded to %s (session %s)\n", cache.Manifest.ID, outDir, session)
}
