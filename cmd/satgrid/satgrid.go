package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/orbview/satgrid/internal/api"
	"github.com/orbview/satgrid/internal/celestrak"
	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/db"
	"github.com/orbview/satgrid/internal/device"
	"github.com/orbview/satgrid/internal/device/emulator"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/pipeline"
	"github.com/orbview/satgrid/internal/projection"
	"github.com/orbview/satgrid/internal/serialmux"
	"github.com/orbview/satgrid/internal/transform"
	"github.com/orbview/satgrid/internal/units"
	"github.com/orbview/satgrid/internal/version"
)

var (
	listen             = flag.String("listen", ":8080", "HTTP listen address")
	port               = flag.String("port", "/dev/ttyACM0", "Serial port of the display device")
	baud               = flag.Int("baud", 115200, "Serial baud rate")
	dbFile             = flag.String("db", "satgrid.db", "Path to the SQLite database file")
	tuningFile         = flag.String("tuning", "", "Path to a tuning JSON file (built-in defaults when empty)")
	groupsFlag         = flag.String("groups", defaultGroups, "Comma-separated CelesTrak GP groups to track")
	cacheDir           = flag.String("cache-dir", "celestrak-cache", "Directory for cached CelesTrak downloads")
	modeFlag           = flag.String("mode", "topocentric", "Projection mode: topocentric (sky view) or geocentric (map view)")
	shellFlag          = flag.String("shell", "starlink", "Orbit shell for field-of-view conversion: vleo, starlink, leo or geo")
	viewFlag           = flag.String("view", "", "View streamed to the display (default: the first device view)")
	emulate            = flag.Bool("emulate", false, "Drive an in-process emulated display instead of hardware")
	disableSerial      = flag.Bool("disable-serial", false, "Run without any display device (API only)")
	skipMigrationCheck = flag.Bool("skip-migration-check", false, "Start even when the database schema is behind the shipped migrations")
)

// defaultGroups covers the stations plus enough purpose-tagged groups that
// every classification view has something to color.
const defaultGroups = "stations,starlink,oneweb,iridium-NEXT,geo,weather,noaa,gnss,gps-ops,galileo"

// reconnectDelay paces session reconnect attempts after the display stops
// answering.
const reconnectDelay = 5 * time.Second

// splitGroups parses the comma-separated -groups flag, dropping empty
// entries.
func splitGroups(s string) []string {
	var groups []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

// parseMode maps the -mode flag to a projection mode.
func parseMode(name string) (projection.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "topocentric", "sky":
		return projection.ModeTopocentric, nil
	case "geocentric", "map":
		return projection.ModeGeocentric, nil
	}
	return "", fmt.Errorf("unknown projection mode %q, want topocentric or geocentric", name)
}

// parseShell maps the -shell flag to an orbit shell preset.
func parseShell(name string) (units.Orbit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vleo":
		return units.OrbitVLEO, nil
	case "starlink":
		return units.OrbitStarlink, nil
	case "leo":
		return units.OrbitLEO, nil
	case "geo":
		return units.OrbitGEO, nil
	}
	return 0, fmt.Errorf("unknown orbit shell %q, want vleo, starlink, leo or geo", name)
}

// projectionConfig derives the grid span from the tuning. A field of view
// given from the observer's vantage covers a wider Earth-centred span the
// higher the shell, so the map view converts it; the sky view uses the
// observer angle directly.
func projectionConfig(tuning *config.Tuning, mode projection.Mode, shell units.Orbit) projection.Config {
	fov := tuning.GetFieldOfViewDeg()
	ref := tuning.GetFoVReference()
	switch {
	case mode == projection.ModeGeocentric && ref == config.FoVReferenceObserver:
		fov = projection.ObserverToOriginFoV(fov, shell.AltitudeKm())
	case mode == projection.ModeTopocentric && ref == config.FoVReferenceOrigin:
		fov = projection.OriginToObserverFoV(fov, shell.AltitudeKm())
	}
	return projection.Config{
		Mode:         mode,
		Width:        tuning.GetGridWidth(),
		Height:       tuning.GetGridHeight(),
		FoVDeg:       fov,
		CenterLatDeg: tuning.GetObserverLatDeg(),
		CenterLonDeg: tuning.GetObserverLonDeg(),
	}
}

func hasView(views []string, name string) bool {
	for _, v := range views {
		if v == name {
			return true
		}
	}
	return false
}

// establishSession runs the dimension handshake and warns when the display
// does not match the configured grid. Op-1 clipping keeps a mismatched
// display usable, just cropped.
func establishSession(ctx context.Context, session *device.Session, projCfg projection.Config) error {
	w, h, err := session.Dimensions(ctx)
	if err != nil {
		if errors.Is(err, device.ErrDeviceUnreachable) {
			log.Printf("dimension handshake failed: %v", err)
			return reconnect(ctx, session)
		}
		return err
	}
	log.Printf("display reports %dx%d", w, h)
	if w != projCfg.Width || h != projCfg.Height {
		log.Printf("display is %dx%d but frames render at %dx%d; out-of-range pixels will be clipped",
			w, h, projCfg.Width, projCfg.Height)
	}
	return nil
}

// reconnect retries the session handshake until it succeeds or the context
// ends. The display may stay unplugged indefinitely; the daemon keeps
// serving the API while it waits.
func reconnect(ctx context.Context, session *device.Session) error {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
		if err := session.Reestablish(ctx); err != nil {
			log.Printf("reconnect attempt %d failed: %v", attempt, err)
			continue
		}
		log.Printf("display session reestablished on attempt %d", attempt)
		return nil
	}
}

// renderOnce renders one snapshot, publishes it to the API and uploads the
// selected view to the display. A device that untethered itself during a
// quiet stretch no longer matches the differential baseline, so it is
// cleared and repainted in full.
func renderOnce(runner *pipeline.Runner, session *device.Session, server *api.Server, view string, at time.Time) error {
	snap, err := runner.Snapshot(at)
	if err != nil {
		return fmt.Errorf("snapshot failed: %v", err)
	}
	server.PublishSnapshot(snap)

	if session == nil {
		return nil
	}
	frame, ok := snap.Frames.Frame(view)
	if !ok {
		return fmt.Errorf("view %q not rendered", view)
	}

	if session.DevicePresumedUntethered() {
		if err := session.Clear(); err != nil {
			return err
		}
	}
	if _, err := session.UploadFrame(frame); err != nil {
		return err
	}
	return nil
}

// renderLoop renders a snapshot every interval and streams the selected
// view to the display. It owns the tethered session: nothing else writes
// pixels while the daemon runs.
func renderLoop(ctx context.Context, runner *pipeline.Runner, session *device.Session, server *api.Server, projCfg projection.Config, view string, interval time.Duration) error {
	if session != nil {
		if err := establishSession(ctx, session, projCfg); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := renderOnce(runner, session, server, view, time.Now())
			if err == nil {
				continue
			}
			if errors.Is(err, device.ErrDeviceUnreachable) {
				log.Printf("display unreachable: %v", err)
				if err := reconnect(ctx, session); err != nil {
					return err
				}
				continue
			}
			log.Printf("render failed: %v", err)
		}
	}
}

// Main
func main() {
	flag.Parse()

	// `satgrid migrate <action>` manages the schema and exits.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbFile)
		return
	}

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	if *port == "" && !*emulate && !*disableSerial {
		log.Fatal("Serial port is required (or pass -emulate or -disable-serial)")
	}

	log.Printf("satgrid %s", version.String())

	tuning, err := config.LoadTuning(*tuningFile)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatalf("Invalid -mode: %v", err)
	}
	shell, err := parseShell(*shellFlag)
	if err != nil {
		log.Fatalf("Invalid -shell: %v", err)
	}
	groups := splitGroups(*groupsFlag)
	if len(groups) == 0 {
		log.Fatal("At least one CelesTrak group is required")
	}

	projCfg := projectionConfig(tuning, mode, shell)
	observer := transform.Observer{
		LatDeg:   tuning.GetObserverLatDeg(),
		LonDeg:   tuning.GetObserverLonDeg(),
		AltKm:    tuning.GetObserverAltKm(),
		AreaSlug: tuning.GetAreaSlug(),
	}

	database, err := db.NewDBWithMigrationCheck(*dbFile, *skipMigrationCheck)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Signal context up front so SIGINT during the initial catalog
	// download aborts cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	celestrakClient := celestrak.NewClient(celestrak.Options{
		BaseURL:  tuning.GetCelestrakBaseURL(),
		CacheDir: *cacheDir,
		MaxAge:   time.Duration(tuning.GetCatalogMaxAgeHours()) * time.Hour,
	})
	catalog, err := celestrakClient.LoadCatalog(ctx, groups)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	if err := database.ReplaceObjects(catalog.Objects()); err != nil {
		log.Printf("Failed to snapshot catalog to database: %v", err)
	}

	prop := ephem.NewPropagator()
	added, failed := prop.AddCatalog(catalog.Objects())
	if added == 0 {
		log.Fatalf("No propagatable objects in catalog (%d rejected)", failed)
	}
	log.Printf("Catalog ready: %d objects propagatable, %d rejected", added, failed)

	runner, err := pipeline.NewRunner(catalog, prop, pipeline.Options{
		Observer:   observer,
		Projection: projCfg,
	})
	if err != nil {
		log.Fatalf("Failed to build render pipeline: %v", err)
	}

	view := *viewFlag
	if view == "" {
		view = runner.Views()[0]
	}
	if !hasView(runner.Views(), view) {
		log.Fatalf("Unknown view %q, have %v", view, runner.Views())
	}

	var displaySerial serialmux.SerialMuxInterface
	var emu *emulator.Emulator
	switch {
	case *disableSerial:
		displaySerial = serialmux.NewDisabledSerialMux()
		log.Print("Serial disabled, serving the API only")
	case *emulate:
		emu, err = emulator.New(emulator.Options{
			Width:        projCfg.Width,
			Height:       projCfg.Height,
			HomeArea:     tuning.GetAreaSlug(),
			UntetherGap:  time.Duration(tuning.GetUntetherGapMS()) * time.Millisecond,
			PauseTimeout: time.Duration(tuning.GetPauseTimeoutMS()) * time.Millisecond,
		})
		if err != nil {
			log.Fatalf("Failed to create display emulator: %v", err)
		}
		displaySerial = serialmux.NewSerialMux(emu)
		log.Print("Driving an emulated display")
	default:
		m, err := serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			log.Fatalf("Failed to open display port %s: %v", *port, err)
		}
		displaySerial = m
		log.Printf("Opened display port %s at %d baud", *port, *baud)
	}
	defer displaySerial.Close()

	var session *device.Session
	if !*disableSerial {
		session = device.NewSession(displaySerial, device.SessionOptions{
			QuietPeriod:        time.Duration(tuning.GetQuietPeriodMS()) * time.Millisecond,
			UntetherGap:        time.Duration(tuning.GetUntetherGapMS()) * time.Millisecond,
			ReadTimeout:        time.Duration(tuning.GetReadTimeoutMS()) * time.Millisecond,
			DimensionRetries:   tuning.GetDimensionRetries(),
			DifferentialUpload: tuning.GetDifferentialUpload(),
		})
	}

	apiServer := api.NewServer(api.ServerConfig{
		Mux:        displaySerial,
		DB:         database,
		Catalog:    catalog,
		Propagator: prop,
		Runner:     runner,
		Session:    session,
		Tuning:     tuning,
	})

	// Create a wait group for the serial monitor, render loop and HTTP
	// server routines
	var wg sync.WaitGroup

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := displaySerial.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// pump the emulated device so playback and untether transitions fire
	if emu != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := emu.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("emulator error: %v", err)
			}
			log.Print("emulator routine terminated")
		}()
	}

	// render snapshots and stream them to the display
	wg.Add(1)
	go func() {
		defer wg.Done()
		interval := time.Duration(tuning.GetFrameIntervalMS()) * time.Millisecond
		if err := renderLoop(ctx, runner, session, apiServer, projCfg, view, interval); err != nil && err != context.Canceled {
			log.Printf("render loop error: %v", err)
		}
		log.Print("render routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := apiServer.ServeMux()
		displaySerial.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach database admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting HTTP server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
