// Package particle owns the live particle set and advances its physics once per frame.
//
// Lifetime is bounded without timers: alpha decays exponentially and particles are
// culled once it crosses AlphaCullThreshold, so a fresh particle survives 56 steps.
package particle

import (
	"math"
	"math/rand"

	"github.com/lixenwraith/powermode/render"
)

const (
	// MaxParticles caps the store, oldest particles are evicted first
	MaxParticles = 500
	// Gravity is added to vertical velocity every step (cells/frame²)
	Gravity = 0.075
	// AlphaFadeout is the per-step alpha multiplier
	AlphaFadeout = 0.96
	// AlphaCullThreshold removes particles whose alpha is not above it
	AlphaCullThreshold = 0.1

	// Initial velocity ranges (cells/frame), vertical is upward biased
	VelocityMinX = -1.0
	VelocityMaxX = 1.0
	VelocityMinY = -3.5
	VelocityMaxY = -1.5

	// BurstMin and BurstSpread define spawn count: BurstMin + round(rand*BurstSpread)
	BurstMin    = 5
	BurstSpread = 5
)

// Particle is a single simulated point, Color is fixed at creation
type Particle struct {
	X, Y   float64
	VX, VY float64
	Alpha  float64
	Color  render.RGB
}

// step applies one integration step in place
func (p *Particle) step() {
	p.VY += Gravity
	p.X += p.VX
	p.Y += p.VY
	p.Alpha *= AlphaFadeout
}

// BurstCount returns the number of particles for one spawn, uniformly 5-10 rounded
func BurstCount(rng *rand.Rand) int {
	return BurstMin + int(math.Round(rng.Float64()*BurstSpread))
}

// randRange returns a uniform value in [lo, hi)
func randRange(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
