// Package throttle provides a leading-edge rate limiter that drops calls during cooldown.
package throttle

import (
	"time"
)

// Limiter admits at most one call per window, trailing calls are dropped, never queued
// Not safe for concurrent use; owners serialize calls on their event loop
type Limiter struct {
	window time.Duration
	last   time.Time
	fired  bool
}

// New creates a limiter with the given cooldown window
func New(window time.Duration) *Limiter {
	return &Limiter{window: window}
}

// Window returns the cooldown length
func (l *Limiter) Window() time.Duration {
	return l.window
}

// TryFire returns true and starts a new window if now is outside the current one
func (l *Limiter) TryFire(now time.Time) bool {
	if l.fired && now.Sub(l.last) < l.window {
		return false
	}
	l.last = now
	l.fired = true
	return true
}

// Reset forgets the last fire so the next call is admitted
func (l *Limiter) Reset() {
	l.fired = false
	l.last = time.Time{}
}
