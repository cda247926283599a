// Package api serves the HTTP control surface: status, catalog queries,
// on-demand renders, frame images and the device command passthrough.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/db"
	"github.com/orbview/satgrid/internal/device"
	"github.com/orbview/satgrid/internal/ephem"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/pipeline"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/sat"
	"github.com/orbview/satgrid/internal/serialmux"
	"github.com/orbview/satgrid/internal/timeutil"
	"github.com/orbview/satgrid/internal/transform"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the tracking pipeline, catalog and device link over HTTP.
// The snapshot served by /api/status and /api/frame.png is whichever one
// was published last, either by the render loop or by /api/render.
type Server struct {
	m       serialmux.SerialMuxInterface
	db      *db.DB
	catalog *sat.Catalog
	prop    *ephem.Propagator
	runner  *pipeline.Runner
	session *device.Session
	tuning  *config.Tuning
	clock   timeutil.Clock

	mu     sync.Mutex
	latest *pipeline.Snapshot
}

// ServerConfig carries the dependencies for NewServer. Mux, Catalog,
// Propagator and Runner are required; DB, Session and Tuning may be nil
// when the matching surface is not wired (no journal, no device, default
// tuning).
type ServerConfig struct {
	Mux        serialmux.SerialMuxInterface
	DB         *db.DB
	Catalog    *sat.Catalog
	Propagator *ephem.Propagator
	Runner     *pipeline.Runner
	Session    *device.Session
	Tuning     *config.Tuning
	Clock      timeutil.Clock
}

func NewServer(cfg ServerConfig) *Server {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Server{
		m:       cfg.Mux,
		db:      cfg.DB,
		catalog: cfg.Catalog,
		prop:    cfg.Propagator,
		runner:  cfg.Runner,
		session: cfg.Session,
		tuning:  cfg.Tuning,
		clock:   clock,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.streamEvents)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/objects", s.listObjects)
	mux.HandleFunc("/api/render", s.renderSnapshot)
	mux.HandleFunc("/api/frame.png", s.showFramePNG)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/uploads", s.listUploads)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/debug/sky", s.showSkyChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// PublishSnapshot makes snap the snapshot served by /api/status and
// /api/frame.png and journals it as a run. The render loop publishes
// every snapshot it uploads to the device; /api/render publishes on
// demand.
func (s *Server) PublishSnapshot(snap *pipeline.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	run := db.Run{
		ID:         snap.ID,
		AreaSlug:   s.runner.Observer().AreaSlug,
		Mode:       string(s.runner.Mode()),
		At:         snap.At,
		DurationMS: snap.Duration.Milliseconds(),
		Considered: snap.Counts.Considered,
		Drawn:      snap.Counts.Drawn,
		OutOfFrame: snap.Counts.OutOfFrame,
		Skipped:    snap.Counts.Skipped,
	}
	if err := s.db.RecordRun(run); err != nil {
		monitoring.Logf("api: failed to record run %s: %v", snap.ID, err)
	}
}

func (s *Server) latestSnapshot() *pipeline.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// RunSummary is the rendered-instant summary shared by /api/status and
// /api/render. Lit maps each view name to its painted pixel count, which
// can be below Drawn when several objects land on the same cell or a
// view's rules leave some unpainted.
type RunSummary struct {
	ID         string          `json:"id"`
	At         time.Time       `json:"at"`
	DurationMS int64           `json:"duration_ms"`
	Counts     pipeline.Counts `json:"counts"`
	Lit        map[string]int  `json:"lit"`
}

func summarize(snap *pipeline.Snapshot) *RunSummary {
	lit := make(map[string]int)
	for _, name := range snap.Frames.Views() {
		if f, ok := snap.Frames.Frame(name); ok {
			lit[name] = f.LitCount()
		}
	}
	return &RunSummary{
		ID:         snap.ID,
		At:         snap.At,
		DurationMS: snap.Duration.Milliseconds(),
		Counts:     snap.Counts,
		Lit:        lit,
	}
}

// CatalogStatus reports catalog health for /api/status. Propagatable can
// trail Objects when some element sets were rejected at load time.
type CatalogStatus struct {
	Objects      int `json:"objects"`
	Propagatable int `json:"propagatable"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Time     time.Time          `json:"time"`
	Observer transform.Observer `json:"observer"`
	Mode     string             `json:"mode"`
	Views    []string           `json:"views"`
	Catalog  CatalogStatus      `json:"catalog"`
	Device   *device.Status     `json:"device,omitempty"`
	LastRun  *RunSummary        `json:"last_run,omitempty"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := StatusResponse{
		Time:     s.clock.Now(),
		Observer: s.runner.Observer(),
		Mode:     string(s.runner.Mode()),
		Views:    s.runner.Views(),
		Catalog: CatalogStatus{
			Objects:      s.catalog.Len(),
			Propagatable: s.prop.Len(),
		},
	}
	if s.session != nil {
		st := s.session.Status()
		resp.Device = &st
	}
	if snap := s.latestSnapshot(); snap != nil {
		resp.LastRun = summarize(snap)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write status")
		return
	}
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	group := r.URL.Query().Get("group")
	constellation := r.URL.Query().Get("constellation")

	objects := s.catalog.Filter(func(o *sat.TrackedObject) bool {
		if group != "" && !hasGroup(o, group) {
			return false
		}
		if constellation != "" && o.Constellation != constellation {
			return false
		}
		return true
	})

	if err := json.NewEncoder(w).Encode(objects); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write objects")
		return
	}
}

func hasGroup(o *sat.TrackedObject, group string) bool {
	for _, g := range o.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (s *Server) renderSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	at := s.clock.Now()
	if v := r.URL.Query().Get("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'at' parameter, want RFC3339")
			return
		}
		at = parsed
	}

	snap, err := s.runner.Snapshot(at)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to render snapshot: %v", err))
		return
	}
	s.PublishSnapshot(snap)

	if err := json.NewEncoder(w).Encode(summarize(snap)); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write snapshot summary")
		return
	}
}

func (s *Server) showFramePNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.latestSnapshot()
	if snap == nil {
		http.Error(w, "No snapshot rendered yet", http.StatusNotFound)
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = s.runner.Views()[0]
	}
	frame, ok := snap.Frames.Frame(view)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown view %q", view), http.StatusNotFound)
		return
	}

	scale := 16
	if v := r.URL.Query().Get("scale"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 64 {
			http.Error(w, "Invalid 'scale' parameter", http.StatusBadRequest)
			return
		}
		scale = parsed
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := render.EncodePNG(w, frame, scale); err != nil {
		monitoring.Logf("api: failed to encode frame PNG: %v", err)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Run journal not configured")
		return
	}

	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}

	runs, err := s.db.RecentRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}

	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

func (s *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Upload journal not configured")
		return
	}

	limit, ok := s.limitParam(w, r)
	if !ok {
		return
	}

	uploads, err := s.db.RecentUploads(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve uploads: %v", err))
		return
	}
	if uploads == nil {
		uploads = []db.Upload{}
	}

	if err := json.NewEncoder(w).Encode(uploads); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write uploads")
		return
	}
}

// limitParam parses the optional 'limit' query parameter. On a bad value
// it writes the error response and reports false.
func (s *Server) limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 1000 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	t := s.tuning
	config := map[string]interface{}{
		"grid_width":            t.GetGridWidth(),
		"grid_height":           t.GetGridHeight(),
		"field_of_view_deg":     t.GetFieldOfViewDeg(),
		"fov_reference":         t.GetFoVReference(),
		"observer_lat_deg":      t.GetObserverLatDeg(),
		"observer_lon_deg":      t.GetObserverLonDeg(),
		"observer_alt_km":       t.GetObserverAltKm(),
		"area_slug":             t.GetAreaSlug(),
		"quiet_period_ms":       t.GetQuietPeriodMS(),
		"untether_gap_ms":       t.GetUntetherGapMS(),
		"dimension_retries":     t.GetDimensionRetries(),
		"read_timeout_ms":       t.GetReadTimeoutMS(),
		"pause_timeout_ms":      t.GetPauseTimeoutMS(),
		"frame_interval_ms":     t.GetFrameIntervalMS(),
		"differential_upload":   t.GetDifferentialUpload(),
		"catalog_max_age_hours": t.GetCatalogMaxAgeHours(),
		"celestrak_base_url":    t.GetCelestrakBaseURL(),
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

// streamEvents relays device serial traffic as server-sent events, one
// event per line arriving from the device.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.m.Subscribe()
	defer s.m.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	w.(http.Flusher).Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := w.Write([]byte(fmt.Sprintf("data: %s\n\n", payload))); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		case <-r.Context().Done():
			return
		}
	}
}
