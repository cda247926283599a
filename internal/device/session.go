package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/serialmux"
	"github.com/orbview/satgrid/internal/timeutil"
)

// Transport sentinels. A timeout is retried; once the device is declared
// unreachable the session must be re-established before any further sends.
var (
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrDeviceUnreachable = errors.New("device unreachable")
)

// SessionState describes the tethered link as the host sees it.
type SessionState int

const (
	// StateIdle means no command has gone out within the quiet period.
	StateIdle SessionState = iota
	// StateStreaming means a command went out recently.
	StateStreaming
	// StateDisconnected means the dimension handshake exhausted its
	// retries; the session must be re-established.
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SessionOptions tunes the tethered session. DefaultSessionOptions returns
// the standard values; NewSession fills in any zero durations and counts,
// but the zero value of DifferentialUpload disables differential mode.
type SessionOptions struct {
	// QuietPeriod is how long the session may go without sending a
	// command before it reports Idle.
	QuietPeriod time.Duration

	// UntetherGap is how long the device tolerates silence before it
	// switches itself to untethered playback. The host only observes
	// this threshold, it never drives the transition.
	UntetherGap time.Duration

	// ReadTimeout bounds the wait for a single dimension reply.
	ReadTimeout time.Duration

	// DimensionRetries is how many dimension queries are attempted
	// before the device is declared unreachable.
	DimensionRetries int

	// DifferentialUpload skips pixels unchanged since the previous
	// uploaded frame instead of repainting every frame in full.
	DifferentialUpload bool

	// Clock defaults to the real clock.
	Clock timeutil.Clock
}

// DefaultSessionOptions returns the standard tethered-session tuning.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		QuietPeriod:        time.Duration(config.DefaultQuietPeriodMS) * time.Millisecond,
		UntetherGap:        time.Duration(config.DefaultUntetherGapMS) * time.Millisecond,
		ReadTimeout:        time.Duration(config.DefaultReadTimeoutMS) * time.Millisecond,
		DimensionRetries:   config.DefaultDimensionRetries,
		DifferentialUpload: true,
		Clock:              timeutil.RealClock{},
	}
}

// Session is the host half of a tethered link. It owns what the host
// believes about the device (state, dimensions, differential baseline)
// and turns frames into wire commands. Exactly one communication loop
// drives a session; status reads are safe from other goroutines.
type Session struct {
	mux   serialmux.SerialMuxInterface
	clock timeutil.Clock
	opts  SessionOptions

	mu           sync.Mutex
	disconnected bool
	started      time.Time
	lastActivity time.Time
	width        int
	height       int
	lastFrame    *render.Frame
	frames       int
	pixelWrites  int
}

// NewSession wraps a serial mux in a tethered session.
func NewSession(mux serialmux.SerialMuxInterface, opts SessionOptions) *Session {
	defaults := DefaultSessionOptions()
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = defaults.QuietPeriod
	}
	if opts.UntetherGap <= 0 {
		opts.UntetherGap = defaults.UntetherGap
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.DimensionRetries <= 0 {
		opts.DimensionRetries = defaults.DimensionRetries
	}
	return &Session{
		mux:     mux,
		clock:   opts.Clock,
		opts:    opts,
		started: opts.Clock.Now(),
	}
}

// State derives the current session state from the last send time, so no
// background timer is needed to fall back to Idle.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	if s.disconnected {
		return StateDisconnected
	}
	if s.lastActivity.IsZero() || s.clock.Since(s.lastActivity) >= s.opts.QuietPeriod {
		return StateIdle
	}
	return StateStreaming
}

// DevicePresumedUntethered reports whether the link has been quiet long
// enough for the device to have switched itself to untethered playback.
func (s *Session) DevicePresumedUntethered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.lastActivity
	if ref.IsZero() {
		ref = s.started
	}
	return s.clock.Since(ref) >= s.opts.UntetherGap
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) sendCommand(cmd string) error {
	s.mu.Lock()
	disconnected := s.disconnected
	s.mu.Unlock()
	if disconnected {
		return fmt.Errorf("session is disconnected: %w", ErrDeviceUnreachable)
	}

	if err := s.mux.SendCommand(cmd); err != nil {
		return fmt.Errorf("failed to send %q: %w", cmd, err)
	}
	s.touch()
	return nil
}

// SetPixel paints one pixel on the device.
func (s *Session) SetPixel(x, y int, c render.Color) error {
	return s.sendCommand(EncodeSetPixel(x, y, c))
}

// Clear blanks the device. The next differential upload repaints against
// an all-background baseline.
func (s *Session) Clear() error {
	if err := s.sendCommand(EncodeClear()); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastFrame = nil
	s.mu.Unlock()
	return nil
}

// UploadFrame streams a frame to the device and returns the number of
// pixel writes sent. With a differential baseline only changed pixels go
// out; otherwise the display is cleared and every lit pixel is painted.
// A transport failure mid-upload leaves the device contents unknown, so
// the baseline is dropped and the next upload repaints in full.
func (s *Session) UploadFrame(f *render.Frame) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("cannot upload nil frame")
	}

	s.mu.Lock()
	prev := s.lastFrame
	s.mu.Unlock()

	full := prev == nil || !s.opts.DifferentialUpload ||
		prev.Width() != f.Width() || prev.Height() != f.Height()
	if full {
		if err := s.Clear(); err != nil {
			return 0, err
		}
		prev = nil
	}

	writes, err := render.Diff(prev, f)
	if err != nil {
		return 0, fmt.Errorf("failed to diff frames: %v", err)
	}

	sent := 0
	for _, w := range writes {
		if err := s.sendCommand(EncodeSetPixel(w.X, w.Y, w.Color)); err != nil {
			s.mu.Lock()
			s.lastFrame = nil
			s.mu.Unlock()
			return sent, err
		}
		sent++
	}

	s.mu.Lock()
	s.lastFrame = f.Clone()
	s.frames++
	s.pixelWrites += sent
	s.mu.Unlock()
	return sent, nil
}

// Dimensions runs the dimension handshake, retrying on timeout. Once the
// retry budget is spent the session transitions to Disconnected and every
// further send fails until Reestablish.
func (s *Session) Dimensions(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	disconnected := s.disconnected
	retries := s.opts.DimensionRetries
	s.mu.Unlock()
	if disconnected {
		return 0, 0, fmt.Errorf("session is disconnected: %w", ErrDeviceUnreachable)
	}

	for attempt := 1; attempt <= retries; attempt++ {
		w, h, err := s.queryDimensions(ctx)
		if err == nil {
			s.mu.Lock()
			s.width, s.height = w, h
			s.mu.Unlock()
			return w, h, nil
		}
		if !errors.Is(err, ErrTransportTimeout) {
			return 0, 0, err
		}
		monitoring.Logf("dimension query attempt %d/%d failed: %v", attempt, retries, err)
	}

	s.mu.Lock()
	s.disconnected = true
	s.mu.Unlock()
	return 0, 0, fmt.Errorf("no dimension reply after %d attempts: %w", retries, ErrDeviceUnreachable)
}

// queryDimensions sends one bare "3" and waits for a parseable
// "width,height" line. The subscription is opened before the send so a
// fast reply cannot be missed.
func (s *Session) queryDimensions(ctx context.Context) (int, int, error) {
	id, ch := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	if err := s.mux.SendRaw(EncodeDimensionQuery()); err != nil {
		return 0, 0, fmt.Errorf("failed to send dimension query: %w", err)
	}
	s.touch()

	deadline := s.clock.After(s.opts.ReadTimeout)
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return 0, 0, fmt.Errorf("serial mux closed: %w", ErrTransportTimeout)
			}
			w, h, err := ParseDimensionReply(line)
			if err != nil {
				// Other traffic on the line; keep waiting for the reply.
				continue
			}
			return w, h, nil
		case <-deadline:
			return 0, 0, fmt.Errorf("no dimension reply within %v: %w", s.opts.ReadTimeout, ErrTransportTimeout)
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
}

// Reestablish returns a disconnected session to service: host-side device
// state is reset and the dimension handshake runs again.
func (s *Session) Reestablish(ctx context.Context) error {
	s.mu.Lock()
	s.disconnected = false
	s.lastFrame = nil
	s.lastActivity = time.Time{}
	s.started = s.clock.Now()
	s.mu.Unlock()

	monitoring.Logf("reestablishing device session")
	if _, _, err := s.Dimensions(ctx); err != nil {
		return fmt.Errorf("failed to reestablish session: %w", err)
	}
	return nil
}

// Status is a point-in-time snapshot of the session for logs and the
// HTTP API.
type Status struct {
	State              string    `json:"state"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	LastActivity       time.Time `json:"last_activity"`
	PresumedUntethered bool      `json:"presumed_untethered"`
	FramesUploaded     int       `json:"frames_uploaded"`
	PixelWritesSent    int       `json:"pixel_writes_sent"`
}

// Status reports the session for /api/status.
func (s *Session) Status() Status {
	untethered := s.DevicePresumedUntethered()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:              s.stateLocked().String(),
		Width:              s.width,
		Height:             s.height,
		LastActivity:       s.lastActivity,
		PresumedUntethered: untethered,
		FramesUploaded:     s.frames,
		PixelWritesSent:    s.pixelWrites,
	}
}
