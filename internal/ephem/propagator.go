package ephem

import (
	"errors"
	"fmt"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orbview/satgrid/internal/monitoring"
	"github.com/orbview/satgrid/internal/sat"
)

// ErrPropagationUnavailable indicates an object cannot be propagated to
// the requested instant: unknown catalog number, rejected elements, or a
// decayed orbit.
var ErrPropagationUnavailable = errors.New("propagation unavailable")

// State is the propagated state of one object at an instant.
type State struct {
	NoradID uint64
	Time    time.Time

	// Position is the ECI position in km; Velocity is in km/s.
	Position Vec3
	Velocity Vec3

	// GMST is Greenwich mean sidereal time in radians and JulianDay the
	// Julian date, both at Time. Downstream coordinate transforms need
	// them alongside the position.
	GMST      float64
	JulianDay float64
}

// SpeedKmS returns the scalar speed in km/s.
func (s State) SpeedKmS() float64 {
	return s.Velocity.Norm()
}

// Propagator holds SGP4-initialized satellites keyed by catalog number.
// Initialization happens once in Add; StateAt is safe for concurrent use.
type Propagator struct {
	mu   sync.RWMutex
	sats map[uint64]satellite.Satellite
}

// NewPropagator creates an empty propagator.
func NewPropagator() *Propagator {
	return &Propagator{sats: make(map[uint64]satellite.Satellite)}
}

// Add initializes SGP4 state for one object. Objects whose elements are
// rejected by the model return an error and are not registered.
func (p *Propagator) Add(obj *sat.TrackedObject) error {
	s := satellite.TLEToSat(obj.Line1, obj.Line2, satellite.GravityWGS72)
	if s.Error != 0 {
		return fmt.Errorf("%w: elements rejected for %d (sgp4 error %v)",
			ErrPropagationUnavailable, obj.NoradID, s.Error)
	}
	p.mu.Lock()
	p.sats[obj.NoradID] = s
	p.mu.Unlock()
	return nil
}

// AddCatalog initializes every object in the catalog, logging and skipping
// the ones the model rejects. Returns the added and failed counts.
func (p *Propagator) AddCatalog(objs []*sat.TrackedObject) (added, failed int) {
	for _, obj := range objs {
		if err := p.Add(obj); err != nil {
			monitoring.Debugf("ephem: %v", err)
			failed++
			continue
		}
		added++
	}
	if failed > 0 {
		monitoring.Logf("ephem: %d of %d element sets rejected", failed, added+failed)
	}
	return added, failed
}

// Len returns the number of propagatable objects.
func (p *Propagator) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sats)
}

// IDs returns the catalog numbers of all propagatable objects.
func (p *Propagator) IDs() []uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uint64, 0, len(p.sats))
	for id := range p.sats {
		out = append(out, id)
	}
	return out
}

// StateAt propagates the object to t. The returned state is in the ECI
// frame with time fields computed from the UTC instant.
func (p *Propagator) StateAt(id uint64, t time.Time) (State, error) {
	p.mu.RLock()
	s, ok := p.sats[id]
	p.mu.RUnlock()
	if !ok {
		return State{}, fmt.Errorf("%w: object %d not registered", ErrPropagationUnavailable, id)
	}

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	pos, vel := satellite.Propagate(s, year, int(month), day, hour, min, sec)
	position := Vec3{pos.X, pos.Y, pos.Z}
	velocity := Vec3{vel.X, vel.Y, vel.Z}
	if position.hasNaN() || velocity.hasNaN() || position.IsZero() {
		return State{}, fmt.Errorf("%w: object %d at %s", ErrPropagationUnavailable, id, t.Format(time.RFC3339))
	}

	return State{
		NoradID:   id,
		Time:      t,
		Position:  position,
		Velocity:  velocity,
		GMST:      satellite.GSTimeFromDate(year, int(month), day, hour, min, sec),
		JulianDay: satellite.JDay(year, int(month), day, hour, min, sec),
	}, nil
}
