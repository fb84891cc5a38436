package engine

import (
	"github.com/lixenwraith/powermode/config"
	"github.com/lixenwraith/powermode/palette"
	"github.com/lixenwraith/powermode/particle"
	"github.com/lixenwraith/powermode/render"
)

// Spawn emits one burst at (x, y) in surface cells
// Returns false without error when idle or rate limited; a palette error spawns nothing
func (e *Engine) Spawn(x, y float64) (bool, error) {
	if e.surface == nil {
		return false, nil
	}
	if !e.spawnLimiter.TryFire(e.clock.Now()) {
		return false, nil
	}

	colors, err := e.palette()
	if err != nil {
		return false, err
	}

	if e.store.Spawn(x, y, particle.BurstCount(e.rng), colors) {
		e.scheduleFrame()
	}
	return true, nil
}

// palette resolves colors for the effective mode
// With RequireWow set, the configured mode applies only while wow mode is on
func (e *Engine) palette() ([]render.RGB, error) {
	mode := e.settings.ColorMode
	if e.settings.RequireWow && !e.wow {
		mode = config.ColorModeCursor
	}
	return palette.Resolve(mode, e.settings.Colors, e.host.CursorColor())
}

// OnCursorMove shakes, then spawns at the cursor offset by the host origin
// Spawn is deferred one frame so a fresh shake offset is applied first
func (e *Engine) OnCursorMove(ev CursorEvent) {
	if e.surface == nil {
		return
	}

	e.Shake()

	origin, ok := e.host.Bounds()
	if !ok {
		return
	}
	x, y := ev.X+origin.X, ev.Y+origin.Y

	var id FrameID
	id = e.sched.RequestFrame(func() {
		delete(e.deferred, id)
		if e.surface == nil {
			return
		}
		if _, err := e.Spawn(x, y); err != nil {
			e.onError(err)
		}
	})
	e.deferred[id] = struct{}{}
}

// Shake offsets the host container briefly; returns true if an offset was applied
func (e *Engine) Shake() bool {
	if e.surface == nil {
		return false
	}
	if !e.shakeLimiter.TryFire(e.clock.Now()) {
		return false
	}
	if !e.settings.Shake {
		return false
	}
	if _, ok := e.host.Bounds(); !ok {
		return false
	}

	intensity := ShakeMinIntensity + ShakeIntensitySpread*e.rng.Float64()
	dx := intensity * e.randomSign()
	dy := intensity * e.randomSign()

	e.host.Translate(dx, dy)
	e.shaking = true
	e.sched.After(ShakeDuration, func() {
		if e.tornDown || !e.shaking {
			return
		}
		e.host.Translate(0, 0)
		e.shaking = false
	})
	return true
}

func (e *Engine) randomSign() float64 {
	if e.rng.Float64() > 0.5 {
		return -1
	}
	return 1
}
