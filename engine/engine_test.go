package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/lixenwraith/powermode/config"
	"github.com/lixenwraith/powermode/palette"
	"github.com/lixenwraith/powermode/particle"
	"github.com/lixenwraith/powermode/render"
)

// mockHost records host interactions
type mockHost struct {
	bounds      Rect
	laidOut     bool
	width       int
	height      int
	cursorColor string

	translations [][2]float64
	attached     *render.Surface
	detached     int
	resizeFns    map[int]func(int, int)
	nextResize   int
}

func newMockHost() *mockHost {
	return &mockHost{
		bounds:      Rect{X: 10, Y: 10, Width: 80, Height: 24},
		laidOut:     true,
		width:       120,
		height:      40,
		cursorColor: "#00ff00",
		resizeFns:   make(map[int]func(int, int)),
	}
}

func (h *mockHost) Bounds() (Rect, bool)     { return h.bounds, h.laidOut }
func (h *mockHost) Viewport() (int, int)     { return h.width, h.height }
func (h *mockHost) Translate(dx, dy float64) { h.translations = append(h.translations, [2]float64{dx, dy}) }
func (h *mockHost) Attach(s *render.Surface) { h.attached = s }
func (h *mockHost) CursorColor() string      { return h.cursorColor }
func (h *mockHost) Detach(s *render.Surface) {
	if h.attached == s {
		h.attached = nil
	}
	h.detached++
}

func (h *mockHost) OnResize(fn func(int, int)) func() {
	id := h.nextResize
	h.nextResize++
	h.resizeFns[id] = fn
	return func() { delete(h.resizeFns, id) }
}

func (h *mockHost) resize(w, height int) {
	h.width, h.height = w, height
	for _, fn := range h.resizeFns {
		fn(w, height)
	}
}

type testRig struct {
	host   *mockHost
	sched  *ManualScheduler
	clock  *MockTimeProvider
	engine *Engine
	errs   []error
}

func newRig(t *testing.T, settings config.Settings) *testRig {
	t.Helper()
	r := &testRig{host: newMockHost()}
	r.clock = NewMockTimeProvider(time.Unix(1000, 0))
	r.sched = NewManualScheduler(r.clock)

	e, err := New(r.host, r.sched, settings,
		WithClock(r.clock),
		WithRand(rand.New(rand.NewSource(42))),
		WithErrorHandler(func(err error) { r.errs = append(r.errs, err) }),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	r.engine = e
	return r
}

func (r *testRig) ready(t *testing.T, src CursorSource) {
	t.Helper()
	if err := r.engine.OnReady(src); err != nil {
		t.Fatalf("OnReady failed: %v", err)
	}
}

func TestEngineLifecycleStates(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine

	if e.State() != StateIdle {
		t.Fatalf("Expected idle, got %v", e.State())
	}
	if ok, _ := e.Spawn(1, 1); ok {
		t.Error("Spawn while idle should be dropped")
	}

	r.ready(t, nil)
	if e.State() != StateArmed {
		t.Fatalf("Expected armed after ready, got %v", e.State())
	}
	if r.host.attached == nil || r.host.attached != e.Surface() {
		t.Fatal("Surface not attached to host")
	}
	if w, h := e.Surface().Size(); w != 120 || h != 40 {
		t.Errorf("Surface %dx%d, want viewport 120x40", w, h)
	}

	first := e.Surface()
	r.ready(t, nil)
	if e.Surface() != first {
		t.Error("Second OnReady must not recreate the surface")
	}

	if ok, err := e.Spawn(5, 5); !ok || err != nil {
		t.Fatalf("Spawn failed: ok=%v err=%v", ok, err)
	}
	if e.State() != StateRunning {
		t.Errorf("Expected running after spawn, got %v", e.State())
	}
	if r.sched.Pending() != 1 {
		t.Errorf("Expected 1 pending frame, got %d", r.sched.Pending())
	}
}

func TestEngineFrameLoopStopsOneFrameAfterEmpty(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	r.ready(t, nil)

	e.Spawn(20, 20)

	lastLive := 0
	for step := 1; r.sched.Pending() > 0; step++ {
		r.sched.Step()
		if e.Particles() > 0 {
			lastLive = step
		}
		if step > 1000 {
			t.Fatal("Frame loop never stopped")
		}
	}

	// Particles live through 56 integrations, culled on the 57th frame
	if lastLive != 56 {
		t.Errorf("Last frame with live particles %d, want 56", lastLive)
	}
	if got := e.Frames(); got != 58 {
		t.Errorf("Expected 58 frames (57 to empty, 1 final clear), got %d", got)
	}
	if e.State() != StateArmed {
		t.Errorf("Expected armed after loop drained, got %v", e.State())
	}
	e.Surface().Each(func(x, y int, p render.Pixel) {
		t.Fatalf("Final clear left pixel at (%d,%d)", x, y)
	})

	// Next spawn re-arms the loop
	r.clock.Advance(time.Second)
	e.Spawn(1, 1)
	if e.State() != StateRunning {
		t.Errorf("Expected running after new spawn, got %v", e.State())
	}
}

func TestEngineSpawnDuringPendingFrameDoesNotDoubleSchedule(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	r.ready(t, nil)

	e.Spawn(1, 1)
	r.clock.Advance(SpawnWindow)
	e.Spawn(2, 2)
	if r.sched.Pending() != 1 {
		t.Errorf("Expected a single pending frame, got %d", r.sched.Pending())
	}

	e.RequestRedraw()
	if r.sched.Pending() != 1 {
		t.Errorf("RequestRedraw must reuse the pending frame, got %d", r.sched.Pending())
	}
}

func TestEngineRequestRedrawWhileArmed(t *testing.T) {
	r := newRig(t, config.Defaults())
	r.ready(t, nil)

	r.engine.RequestRedraw()
	if r.engine.State() != StateRunning {
		t.Fatalf("Expected running, got %v", r.engine.State())
	}
	// The forced frame sees the flag and keeps the loop for one clearing frame
	if steps := r.sched.RunFrames(10); steps != 2 {
		t.Errorf("Forced redraw ran %d frames, want exactly 2", steps)
	}
	if r.engine.State() != StateArmed {
		t.Errorf("Expected armed, got %v", r.engine.State())
	}
}

func TestEngineDrawsParticleSquares(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	r.ready(t, nil)

	e.Spawn(50, 20)
	r.sched.Step()

	var want []particle.Particle
	e.store.Each(func(p particle.Particle) { want = append(want, p) })
	if len(want) == 0 {
		t.Fatal("No particles after one frame")
	}

	for _, p := range want {
		x, y := roundHalfUp(p.X-1), roundHalfUp(p.Y-1)
		for dy := 0; dy < ParticleSize; dy++ {
			for dx := 0; dx < ParticleSize; dx++ {
				px := e.Surface().At(x+dx, y+dy)
				if px.Alpha <= 0 {
					t.Fatalf("Missing pixel at (%d,%d) for particle at (%.2f,%.2f)", x+dx, y+dy, p.X, p.Y)
				}
				if !px.Color.Equal(render.RGB{0, 255, 0}) {
					t.Errorf("Expected cursor green, got %+v", px.Color)
				}
			}
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1}, {-0.5, 0}, {-1.5, -1}, {2.4, 2}, {2.6, 3},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in); got != tt.want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEngineCursorMoveSpawnsAtHostOffset(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	src := NewCallbackSource()
	r.ready(t, src)

	src.Emit(CursorEvent{X: 100, Y: 50})
	if e.Particles() != 0 {
		t.Fatal("Spawn must be deferred to the next frame")
	}

	r.sched.Step()
	if e.Particles() == 0 {
		t.Fatal("Deferred spawn did not run")
	}
	e.store.Each(func(p particle.Particle) {
		if p.X != 110 || p.Y != 60 {
			t.Errorf("Particle origin (%v,%v), want (110,60)", p.X, p.Y)
		}
	})
}

func TestEngineSpawnRateLimit(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	r.ready(t, nil)

	ok1, _ := e.Spawn(1, 1)
	n := e.Particles()
	r.clock.Advance(10 * time.Millisecond)
	ok2, _ := e.Spawn(1, 1)

	if !ok1 || ok2 {
		t.Errorf("Expected exactly one accepted spawn, got %v %v", ok1, ok2)
	}
	if e.Particles() != n {
		t.Errorf("Dropped spawn added particles: %d -> %d", n, e.Particles())
	}

	r.clock.Advance(15 * time.Millisecond)
	if ok, _ := e.Spawn(1, 1); !ok {
		t.Error("Spawn after window should be accepted")
	}
}

func TestEngineShake(t *testing.T) {
	settings := config.Defaults()
	settings.Shake = true
	r := newRig(t, settings)
	e := r.engine
	r.ready(t, nil)

	if !e.Shake() {
		t.Fatal("First shake should apply")
	}
	r.clock.Advance(50 * time.Millisecond)
	if e.Shake() {
		t.Error("Second shake within 50ms should be dropped")
	}
	if len(r.host.translations) != 1 {
		t.Fatalf("Expected 1 transform, got %d", len(r.host.translations))
	}

	off := r.host.translations[0]
	for _, v := range off {
		a := v
		if a < 0 {
			a = -a
		}
		if a < ShakeMinIntensity || a >= ShakeMinIntensity+ShakeIntensitySpread {
			t.Errorf("Shake offset %v outside [1,3)", v)
		}
	}
	if abs(off[0]) != abs(off[1]) {
		t.Errorf("Both axes should share one intensity, got %v", off)
	}

	// Revert fires 75ms after the shake
	r.sched.Advance(ShakeDuration)
	if len(r.host.translations) != 2 || r.host.translations[1] != [2]float64{0, 0} {
		t.Errorf("Expected revert to (0,0), got %v", r.host.translations)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestEngineShakeDisabled(t *testing.T) {
	r := newRig(t, config.Defaults())
	src := NewCallbackSource()
	r.ready(t, src)

	for i := 0; i < 5; i++ {
		src.Emit(CursorEvent{X: 1, Y: 1})
		r.clock.Advance(ShakeWindow)
	}
	if len(r.host.translations) != 0 {
		t.Errorf("Shake disabled but %d transforms applied", len(r.host.translations))
	}
}

func TestEngineDegenerateGeometryDropsRequests(t *testing.T) {
	settings := config.Defaults()
	settings.Shake = true
	r := newRig(t, settings)
	src := NewCallbackSource()
	r.ready(t, src)
	r.host.laidOut = false

	src.Emit(CursorEvent{X: 5, Y: 5})
	r.sched.RunFrames(10)

	if r.engine.Particles() != 0 || r.engine.Frames() != 0 {
		t.Error("Cursor move without bounds should not spawn")
	}
	if len(r.host.translations) != 0 {
		t.Error("Cursor move without bounds should not shake")
	}
}

func TestEngineResize(t *testing.T) {
	r := newRig(t, config.Defaults())
	r.ready(t, nil)

	r.host.resize(60, 20)
	if w, h := r.engine.Surface().Size(); w != 60 || h != 20 {
		t.Errorf("Surface %dx%d after resize, want 60x20", w, h)
	}
}

func TestEngineTeardown(t *testing.T) {
	settings := config.Defaults()
	settings.Shake = true
	r := newRig(t, settings)
	e := r.engine
	src := NewCallbackSource()
	r.ready(t, src)

	src.Emit(CursorEvent{X: 3, Y: 3}) // shake + deferred spawn
	r.sched.Step()                    // spawn runs, frame scheduled
	r.clock.Advance(SpawnWindow)
	src.Emit(CursorEvent{X: 4, Y: 4}) // another deferred spawn pending

	e.Teardown()

	if e.State() != StateIdle {
		t.Errorf("Expected idle after teardown, got %v", e.State())
	}
	if r.host.attached != nil || r.host.detached != 1 {
		t.Error("Surface not detached")
	}
	if len(r.host.resizeFns) != 0 {
		t.Error("Resize listener not removed")
	}
	if r.sched.Pending() != 0 {
		t.Errorf("Expected pending frames cancelled, got %d", r.sched.Pending())
	}
	if last := r.host.translations[len(r.host.translations)-1]; last != [2]float64{0, 0} {
		t.Errorf("Active shake not reverted at teardown: %v", last)
	}

	// Further events and timers are ignored
	frames := e.Frames()
	n := len(r.host.translations)
	src.Emit(CursorEvent{X: 9, Y: 9})
	r.sched.RunFrames(10)
	r.sched.Advance(time.Second)
	if e.Frames() != frames || len(r.host.translations) != n {
		t.Error("Engine reacted after teardown")
	}

	// Repeated teardown and restart
	e.Teardown()
	if r.host.detached != 1 {
		t.Error("Second teardown detached again")
	}
	if err := e.OnReady(nil); !errors.Is(err, ErrTornDown) {
		t.Errorf("Expected ErrTornDown, got %v", err)
	}
}

func TestEngineStaleFrameAfterTeardown(t *testing.T) {
	r := newRig(t, config.Defaults())
	e := r.engine
	r.ready(t, nil)
	e.Spawn(1, 1)

	// A callback captured before teardown must no-op
	e.Teardown()
	e.drawFrame()
	if e.Frames() != 0 {
		t.Error("Stale frame drew after teardown")
	}
}

func TestEngineTeardownBeforeReady(t *testing.T) {
	r := newRig(t, config.Defaults())
	r.engine.Teardown()
	if r.host.detached != 0 {
		t.Error("Teardown before ready touched the host")
	}
}

func TestEnginePaletteModes(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Settings
		wow      bool
		want     render.RGB
	}{
		{"Cursor mode", config.Settings{ColorMode: config.ColorModeCursor}, false, render.RGB{0, 255, 0}},
		{"Rainbow mode", config.Settings{ColorMode: config.ColorModeRainbow}, false, palette.Rainbow[0]},
		{"Custom mode", config.Settings{ColorMode: config.ColorModeCustom, Colors: []string{"blue"}}, false, render.RGB{0, 0, 255}},
		{"Wow gated off", config.Settings{ColorMode: config.ColorModeRainbow, RequireWow: true}, false, render.RGB{0, 255, 0}},
		{"Wow gated on", config.Settings{ColorMode: config.ColorModeRainbow, RequireWow: true}, true, palette.Rainbow[0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.settings)
			r.ready(t, nil)
			r.engine.SetWowMode(tt.wow)

			if _, err := r.engine.Spawn(0, 0); err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			first := true
			r.engine.store.Each(func(p particle.Particle) {
				if first && !p.Color.Equal(tt.want) {
					t.Errorf("First particle color %+v, want %+v", p.Color, tt.want)
				}
				first = false
			})
		})
	}
}

func TestEngineInvalidCursorColorSurfaces(t *testing.T) {
	r := newRig(t, config.Defaults())
	src := NewCallbackSource()
	r.ready(t, src)
	r.host.cursorColor = "not-a-color"

	src.Emit(CursorEvent{X: 1, Y: 1})
	r.sched.Step()

	if len(r.errs) != 1 || !errors.Is(r.errs[0], palette.ErrUnknownColor) {
		t.Errorf("Expected ErrUnknownColor reported, got %v", r.errs)
	}
	if r.engine.Particles() != 0 {
		t.Error("Colorless particles spawned")
	}
}

func TestEngineSetSettingsRejectsBadPalette(t *testing.T) {
	r := newRig(t, config.Defaults())

	bad := config.Settings{ColorMode: config.ColorModeCustom, Colors: []string{"red", "nope"}}
	if err := r.engine.SetSettings(bad); !errors.Is(err, palette.ErrUnknownColor) {
		t.Fatalf("Expected ErrUnknownColor, got %v", err)
	}
	if !r.engine.Settings().Equal(config.Defaults()) {
		t.Error("Rejected settings replaced the snapshot")
	}

	if _, err := New(newMockHost(), r.sched, bad); err == nil {
		t.Error("New should reject unresolvable settings")
	}
}

func TestEngineObservedSource(t *testing.T) {
	r := newRig(t, config.Defaults())
	pos := CursorEvent{X: 2, Y: 3}
	src := NewObservedSource(func() (CursorEvent, bool) { return pos, true })
	r.ready(t, src)

	src.Mutated()
	r.sched.Step()
	if r.engine.Particles() == 0 {
		t.Fatal("Observed cursor move did not spawn")
	}
	r.engine.store.Each(func(p particle.Particle) {
		if p.X != 12 || p.Y != 13 {
			t.Errorf("Origin (%v,%v), want (12,13)", p.X, p.Y)
		}
	})
}

func TestEngineID(t *testing.T) {
	a := newRig(t, config.Defaults()).engine
	b := newRig(t, config.Defaults()).engine
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("Expected distinct ids, got %q %q", a.ID(), b.ID())
	}
}
