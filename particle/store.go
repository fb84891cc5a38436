package particle

import (
	"math/rand"

	"github.com/lixenwraith/powermode/render"
)

// Store is the ordered particle sequence, insertion order drives eviction
type Store struct {
	particles []Particle
	rng       *rand.Rand
}

// NewStore creates an empty store drawing velocities from rng
func NewStore(rng *rand.Rand) *Store {
	return &Store{
		particles: make([]Particle, 0, MaxParticles),
		rng:       rng,
	}
}

// Len returns the live particle count
func (s *Store) Len() int {
	return len(s.particles)
}

// IsEmpty returns true when no particles are live
func (s *Store) IsEmpty() bool {
	return len(s.particles) == 0
}

// Spawn appends count particles at (x, y) cycling through palette by index
// Returns true if the store went from empty to non-empty
func (s *Store) Spawn(x, y float64, count int, palette []render.RGB) bool {
	if count <= 0 || len(palette) == 0 {
		return false
	}
	wasEmpty := len(s.particles) == 0

	for i := 0; i < count; i++ {
		s.particles = append(s.particles, Particle{
			X:     x,
			Y:     y,
			VX:    randRange(s.rng, VelocityMinX, VelocityMaxX),
			VY:    randRange(s.rng, VelocityMinY, VelocityMaxY),
			Alpha: 1.0,
			Color: palette[i%len(palette)],
		})
	}

	return wasEmpty
}

// Integrate advances every particle one step, trims to the newest MaxParticles,
// then culls faded particles; returns the live count
func (s *Store) Integrate() int {
	for i := range s.particles {
		s.particles[i].step()
	}

	// Evict oldest beyond capacity
	if excess := len(s.particles) - MaxParticles; excess > 0 {
		n := copy(s.particles, s.particles[excess:])
		s.particles = s.particles[:n]
	}

	// In-place filter preserving order
	live := s.particles[:0]
	for _, p := range s.particles {
		if p.Alpha > AlphaCullThreshold {
			live = append(live, p)
		}
	}
	clear(s.particles[len(live):])
	s.particles = live

	return len(s.particles)
}

// Each calls fn for every live particle, oldest first
func (s *Store) Each(fn func(p Particle)) {
	for _, p := range s.particles {
		fn(p)
	}
}

// Clear drops all particles
func (s *Store) Clear() {
	s.particles = s.particles[:0]
}
