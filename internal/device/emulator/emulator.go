// Package emulator implements the device side of the display protocol: a
// pixel grid driven by wire commands while a host is attached, and cached
// playback with tier selection once the wire goes quiet.
package emulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/orbview/satgrid/internal/config"
	"github.com/orbview/satgrid/internal/device"
	"github.com/orbview/satgrid/internal/fsutil"
	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/playback"
	"github.com/orbview/satgrid/internal/render"
	"github.com/orbview/satgrid/internal/timeutil"
)

// State identifies what the emulated device is doing.
type State int

const (
	// StateTethered means a host is driving the display over the wire.
	StateTethered State = iota
	// StateLiveView plays an uploaded cache whose window covers now.
	StateLiveView
	// StateSameAreaStaleView replays an uploaded cache past its window.
	StateSameAreaStaleView
	// StateFallbackView plays the shipped or synthesized fallback cache.
	StateFallbackView
	// StatePaused blanks the display after prolonged inactivity.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateTethered:
		return "tethered"
	case StateLiveView:
		return "live-view"
	case StateSameAreaStaleView:
		return "same-area-stale-view"
	case StateFallbackView:
		return "fallback-view"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func stateForTier(t playback.Tier) State {
	switch t {
	case playback.TierLive:
		return StateLiveView
	case playback.TierSameAreaStale:
		return StateSameAreaStaleView
	default:
		return StateFallbackView
	}
}

// pumpInterval is how often Run applies due transitions. Well under the
// one-second playback cadence so frame advances never visibly stall.
const pumpInterval = 100 * time.Millisecond

// readPollInterval paces Read when no reply is queued, like a serial port
// read timeout.
const readPollInterval = 10 * time.Millisecond

// Options configure an emulated device.
type Options struct {
	// Width and Height give the matrix size in cells.
	Width  int
	Height int

	// HomeArea is the area slug the device was provisioned for. Tier
	// selection compares uploaded caches against it.
	HomeArea string

	// UntetherGap is how long the wire may stay quiet before the device
	// resumes on-device playback.
	UntetherGap time.Duration

	// PauseTimeout is how long playback runs without a button press or
	// tethered command before the display is blanked.
	PauseTimeout time.Duration

	// Store holds the playback cache slots. When nil an empty store over
	// an in-memory filesystem is used, so playback starts on the
	// synthesized fallback.
	Store *playback.Store

	// Buttons, when set, is polled on every Sync for a pressed view
	// button.
	Buttons device.ButtonReader

	// Clock defaults to the real clock.
	Clock timeutil.Clock
}

// Emulator is a software display device. It satisfies the serial port
// contract on its host-facing side, so a SerialMux can drive it exactly
// like real hardware.
//
// All timing is derived from the injected clock on observation. There is
// no background timer: Run, Sync, the wire, and every accessor apply the
// transitions that have come due since the last look.
type Emulator struct {
	opts  Options
	clock timeutil.Clock
	store *playback.Store
	grid  *Grid

	mu        sync.Mutex
	closed    bool
	pending   []byte       // unterminated wire input
	out       bytes.Buffer // replies queued for the host
	malformed int

	state           State
	lastActivity    time.Time // last well-formed wire command
	lastInteraction time.Time // last command or button press

	cache         *playback.Cache
	tier          playback.Tier
	viewIdx       int
	baseIndex     int
	frameIdx      int
	tierEnteredAt time.Time
	loopDeadline  time.Time
}

var _ io.ReadWriteCloser = (*Emulator)(nil)

// New builds an emulated device and starts it in untethered playback, the
// same way the hardware boots before any host speaks to it.
func New(opts Options) (*Emulator, error) {
	if opts.Width == 0 {
		opts.Width = config.DefaultGridWidth
	}
	if opts.Height == 0 {
		opts.Height = config.DefaultGridHeight
	}
	if opts.HomeArea == "" {
		opts.HomeArea = config.DefaultAreaSlug
	}
	if opts.UntetherGap <= 0 {
		opts.UntetherGap = config.DefaultUntetherGapMS * time.Millisecond
	}
	if opts.PauseTimeout <= 0 {
		opts.PauseTimeout = config.DefaultPauseTimeoutMS * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Store == nil {
		opts.Store = playback.NewStore(fsutil.NewMemoryFileSystem(), "/emulator")
	}

	grid, err := NewGrid(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	e := &Emulator{opts: opts, clock: opts.Clock, store: opts.Store, grid: grid}
	now := e.clock.Now()
	e.lastInteraction = now
	e.selectTier(now)
	return e, nil
}

// Run pumps the device until the context is cancelled.
func (e *Emulator) Run(ctx context.Context) error {
	t := e.clock.NewTicker(pumpInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
			e.Sync()
		}
	}
}

// Sync applies every transition due at the current device clock time and
// polls the buttons. Callers that do not use Run pump the device with it.
func (e *Emulator) Sync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.advanceTo(now)
	if e.opts.Buttons != nil {
		if i, ok := e.opts.Buttons.ButtonPressed(); ok {
			e.pressButton(i, now)
		}
	}
}

// PressButton selects view i within the current tier. It never changes the
// tier. A press while paused resumes the prior tier and view.
func (e *Emulator) PressButton(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.advanceTo(now)
	e.pressButton(i, now)
}

// Write feeds host bytes to the device side of the wire.
func (e *Emulator) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, errors.New("emulator: port closed")
	}
	e.feed(p)
	return len(p), nil
}

// Read returns bytes the device has queued for the host. Like a serial
// port with a read timeout it returns zero bytes when nothing is pending.
func (e *Emulator) Read(p []byte) (int, error) {
	e.mu.Lock()
	if e.closed && e.out.Len() == 0 {
		e.mu.Unlock()
		return 0, io.EOF
	}
	if e.out.Len() == 0 {
		e.mu.Unlock()
		time.Sleep(readPollInterval)
		return 0, nil
	}
	n, _ := e.out.Read(p)
	e.mu.Unlock()
	return n, nil
}

// Close shuts the device side of the wire. Queued replies stay readable.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// State reports the device state at the current clock time.
func (e *Emulator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceTo(e.clock.Now())
	return e.state
}

// Malformed returns how many wire commands the device has rejected.
func (e *Emulator) Malformed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.malformed
}

// Snapshot returns a copy of the matrix contents after applying due
// transitions.
func (e *Emulator) Snapshot() *render.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceTo(e.clock.Now())
	return e.grid.Snapshot()
}

// Status is a point-in-time summary for debug pages and tests.
type Status struct {
	State             string `json:"state"`
	Tier              string `json:"tier"`
	View              string `json:"view"`
	FrameIndex        int    `json:"frame_index"`
	MalformedCommands int    `json:"malformed_commands"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
}

// Status reports the device state, playback position, and grid size.
func (e *Emulator) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceTo(e.clock.Now())
	w, h := e.grid.Dimensions()
	return Status{
		State:             e.state.String(),
		Tier:              e.tier.String(),
		View:              e.currentView(),
		FrameIndex:        e.frameIdx,
		MalformedCommands: e.malformed,
		Width:             w,
		Height:            h,
	}
}

// advanceTo applies every transition due at time now. The untether gap,
// the pause timeout, loop-period re-evaluation, and frame advancement all
// key off the device clock rather than background timers.
func (e *Emulator) advanceTo(now time.Time) {
	if e.state == StateTethered {
		if now.Sub(e.lastActivity) < e.opts.UntetherGap {
			return
		}
		// The wire went quiet. Drop the host's image and resume
		// playback from a fresh tier selection.
		e.grid.Clear()
		e.selectTier(now)
	}

	if e.state != StatePaused && now.Sub(e.lastInteraction) >= e.opts.PauseTimeout {
		e.grid.Clear()
		e.state = StatePaused
	}
	if e.state == StatePaused {
		return
	}

	e.advancePlayback(now)
}

func (e *Emulator) advancePlayback(now time.Time) {
	if !now.Before(e.loopDeadline) {
		// One loop period elapsed. Check whether a fresher tier has
		// become available before continuing.
		e.selectTier(now)
		return
	}
	idx := e.baseIndex + int(now.Sub(e.tierEnteredAt)/e.cache.Manifest.FrameInterval())
	if idx != e.frameIdx {
		e.frameIdx = idx
		e.paintCurrent()
	}
}

// selectTier picks the best available cache for the device home area and
// restarts playback on it.
func (e *Emulator) selectTier(now time.Time) {
	e.cache, e.tier = e.store.SelectCache(e.opts.HomeArea, now)
	e.baseIndex = playback.StartIndex(e.cache.Manifest, e.tier, now)
	e.frameIdx = e.baseIndex
	e.tierEnteredAt = now
	e.loopDeadline = now.Add(e.cache.Manifest.LoopPeriod())
	e.state = stateForTier(e.tier)
	e.paintCurrent()
}

func (e *Emulator) paintCurrent() {
	if f, ok := e.cache.Frame(e.currentView(), e.frameIdx); ok {
		e.grid.Paint(f)
	}
}

func (e *Emulator) currentView() string {
	views := e.cache.Manifest.Views
	if len(views) == 0 {
		return ""
	}
	return views[e.viewIdx%len(views)]
}

func (e *Emulator) pressButton(i int, now time.Time) {
	if i < 0 {
		return
	}
	e.lastInteraction = now
	e.viewIdx = i
	if e.state == StatePaused {
		e.state = stateForTier(e.tier)
		e.paintCurrent()
		return
	}
	if e.state != StateTethered {
		e.paintCurrent()
	}
}

// feed consumes raw bytes from the host side of the wire. Input is split
// into newline-terminated commands. No other operation begins with '3',
// so a leading '3' is a complete dimension query even without a
// terminator; a lone newline following it is swallowed.
func (e *Emulator) feed(data []byte) {
	now := e.clock.Now()
	e.advanceTo(now)
	e.pending = append(e.pending, data...)
	for len(e.pending) > 0 {
		if e.pending[0] == '3' {
			e.pending = e.pending[1:]
			if len(e.pending) > 0 && e.pending[0] == '\n' {
				e.pending = e.pending[1:]
			}
			e.handleCommand(device.Command{Op: device.OpQueryDimensions}, now)
			continue
		}
		idx := bytes.IndexByte(e.pending, '\n')
		if idx < 0 {
			return
		}
		line := string(e.pending[:idx])
		e.pending = e.pending[idx+1:]
		if line == "" || line == "\r" {
			// Padding between commands, not a command.
			continue
		}
		cmd, err := device.DecodeCommand(line)
		if err != nil {
			e.malformed++
			monitoring.Debugf("emulator: dropped malformed command %q: %v", line, err)
			continue
		}
		e.handleCommand(cmd, now)
	}
}

// handleCommand applies one well-formed command. The first command after
// untethered playback hands the display over to the host.
func (e *Emulator) handleCommand(cmd device.Command, now time.Time) {
	if e.state != StateTethered {
		e.grid.Clear()
		e.state = StateTethered
	}
	e.lastActivity = now
	e.lastInteraction = now

	switch cmd.Op {
	case device.OpSetPixel:
		e.grid.SetPixel(cmd.X, cmd.Y, cmd.Color)
	case device.OpClear:
		e.grid.Clear()
	case device.OpQueryDimensions:
		w, h := e.grid.Dimensions()
		e.out.WriteString(device.EncodeDimensionReply(w, h))
	}
}
