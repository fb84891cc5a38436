package engine

import (
	"math"

	"github.com/lixenwraith/powermode/particle"
)

// scheduleFrame requests the next frame unless one is already pending
func (e *Engine) scheduleFrame() {
	if e.framePending || e.surface == nil {
		return
	}
	e.framePending = true
	e.frameID = e.sched.RequestFrame(e.drawFrame)
}

// RequestRedraw forces at least one more frame even with no live particles
func (e *Engine) RequestRedraw() {
	if e.surface == nil {
		return
	}
	e.needsRedraw = true
	e.scheduleFrame()
}

// drawFrame clears, integrates and draws, then re-arms while particles live
// The redraw flag keeps the loop alive for exactly one frame past emptiness,
// so the final clear reaches the screen
func (e *Engine) drawFrame() {
	e.framePending = false
	if e.surface == nil {
		return
	}

	e.surface.Clear()
	live := e.store.Integrate()
	e.store.Each(e.drawParticle)
	e.frames++

	if live > 0 || e.needsRedraw {
		e.scheduleFrame()
	}
	e.needsRedraw = live > 0
}

// drawParticle fills a ParticleSize square centered on the particle
func (e *Engine) drawParticle(p particle.Particle) {
	x := roundHalfUp(p.X - 1)
	y := roundHalfUp(p.Y - 1)
	e.surface.FillRect(x, y, ParticleSize, ParticleSize, p.Color, p.Alpha)
}

// roundHalfUp rounds .5 toward positive infinity, matching screen pixel snapping
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
