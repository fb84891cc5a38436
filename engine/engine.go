// Package engine drives the particle overlay: it owns the render surface, schedules
// frames only while particles are live, and turns cursor moves into bursts and shakes.
//
// Engine is not safe for concurrent use. Every method, and every callback it hands to
// the Scheduler or Host, runs on the scheduler goroutine; foreign goroutines must
// marshal through the scheduler (see Loop.Post).
package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/powermode/config"
	"github.com/lixenwraith/powermode/palette"
	"github.com/lixenwraith/powermode/particle"
	"github.com/lixenwraith/powermode/render"
	"github.com/lixenwraith/powermode/throttle"
)

const (
	// DefaultFrameInterval approximates a 60Hz display refresh
	DefaultFrameInterval = 16 * time.Millisecond

	// ShakeWindow is the minimum spacing between shakes
	ShakeWindow = 100 * time.Millisecond
	// SpawnWindow is the minimum spacing between bursts
	SpawnWindow = 25 * time.Millisecond
	// ShakeDuration is how long a shake offset stays applied
	ShakeDuration = 75 * time.Millisecond
	// ShakeMinIntensity and ShakeIntensitySpread give intensity in [1, 3)
	ShakeMinIntensity    = 1.0
	ShakeIntensitySpread = 2.0

	// ParticleSize is the side of the square drawn per particle
	ParticleSize = 3
)

// ErrTornDown is returned when a torn down engine is asked to start again
var ErrTornDown = errors.New("engine torn down")

// State is the render loop scheduling state
type State uint8

const (
	StateIdle    State = iota // No surface, nothing scheduled
	StateArmed                // Surface exists, no frame pending
	StateRunning              // A frame is pending
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Engine is one overlay instance bound to one host
type Engine struct {
	id    uuid.UUID
	host  Host
	sched Scheduler
	clock Clock
	rng   *rand.Rand

	store    *particle.Store
	surface  *render.Surface
	settings config.Settings
	wow      bool

	shakeLimiter *throttle.Limiter
	spawnLimiter *throttle.Limiter

	frameID      FrameID
	framePending bool
	needsRedraw  bool
	deferred     map[FrameID]struct{}
	shaking      bool

	unsubResize func()
	unsubCursor func()
	tornDown    bool

	onError func(error)
	frames  uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source for rate limiting
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithRand sets the random source for velocities, burst sizes and shake
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithErrorHandler receives errors from deferred spawns
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.onError = fn
		}
	}
}

// New creates an idle engine, rejecting settings whose palette cannot resolve
func New(host Host, sched Scheduler, settings config.Settings, opts ...Option) (*Engine, error) {
	e := &Engine{
		id:           uuid.New(),
		host:         host,
		sched:        sched,
		clock:        NewTimeProvider(),
		shakeLimiter: throttle.New(ShakeWindow),
		spawnLimiter: throttle.New(SpawnWindow),
		deferred:     make(map[FrameID]struct{}),
	}
	e.onError = func(err error) {
		log.Printf("[engine %s] %v", e.id, err)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.store = particle.NewStore(e.rng)

	if err := e.SetSettings(settings); err != nil {
		return nil, err
	}
	return e, nil
}

// ID returns the instance identifier used in logs
func (e *Engine) ID() string {
	return e.id.String()
}

// State returns the current scheduling state
func (e *Engine) State() State {
	switch {
	case e.surface == nil:
		return StateIdle
	case e.framePending:
		return StateRunning
	default:
		return StateArmed
	}
}

// Particles returns the live particle count
func (e *Engine) Particles() int {
	return e.store.Len()
}

// Frames returns the number of frame callbacks that drew
func (e *Engine) Frames() uint64 {
	return e.frames
}

// Surface returns the owned surface, nil while idle
func (e *Engine) Surface() *render.Surface {
	return e.surface
}

// Settings returns the current snapshot
func (e *Engine) Settings() config.Settings {
	return e.settings.Clone()
}

// ValidateSettings resolves non-cursor palettes so a bad color is surfaced before use
func ValidateSettings(s config.Settings) error {
	if s.ColorMode != config.ColorModeCursor {
		if _, err := palette.Resolve(s.ColorMode, s.Colors, ""); err != nil {
			return fmt.Errorf("settings rejected: %w", err)
		}
	}
	return nil
}

// SetSettings replaces the snapshot atomically, invalid settings leave it unchanged
func (e *Engine) SetSettings(s config.Settings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}
	e.settings = s.Clone()
	return nil
}

// SetWowMode updates the external mode-toggle flag
func (e *Engine) SetWowMode(on bool) {
	e.wow = on
}

// WowMode returns the mode-toggle flag
func (e *Engine) WowMode() bool {
	return e.wow
}

// OnReady moves Idle to Armed: creates and attaches the surface, subscribes to
// resize and, if src is non-nil, to cursor moves. Repeated calls are no-ops
func (e *Engine) OnReady(src CursorSource) error {
	if e.tornDown {
		return ErrTornDown
	}
	if e.surface != nil {
		return nil
	}

	w, h := e.host.Viewport()
	e.surface = render.NewSurface(w, h)
	e.host.Attach(e.surface)
	e.unsubResize = e.host.OnResize(e.resize)
	if src != nil {
		e.unsubCursor = src.Subscribe(e.OnCursorMove)
	}
	return nil
}

// resize matches the surface to the viewport, content is redrawn next frame
func (e *Engine) resize(width, height int) {
	if e.surface == nil {
		return
	}
	e.surface.Resize(width, height)
}

// Teardown releases the surface and all listeners; safe before OnReady and when repeated
func (e *Engine) Teardown() {
	if e.tornDown {
		return
	}
	e.tornDown = true

	if e.framePending {
		e.sched.CancelFrame(e.frameID)
		e.framePending = false
	}
	for id := range e.deferred {
		e.sched.CancelFrame(id)
	}
	clear(e.deferred)

	if e.unsubCursor != nil {
		e.unsubCursor()
		e.unsubCursor = nil
	}
	if e.unsubResize != nil {
		e.unsubResize()
		e.unsubResize = nil
	}
	if e.shaking {
		e.host.Translate(0, 0)
		e.shaking = false
	}
	if e.surface != nil {
		e.host.Detach(e.surface)
		e.surface = nil
	}
	e.store.Clear()
}
