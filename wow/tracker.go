package wow

import (
	"slices"
	"sync"

	"github.com/lixenwraith/powermode/notify"
)

// Notification titles sent on wow mode edges
const (
	MessageOn  = "WOW such on"
	MessageOff = "WOW such off"
)

// Tracker holds the wow mode flag and announces its edge transitions
type Tracker struct {
	mu        sync.Mutex
	enabled   bool
	notifier  notify.Notifier
	observers []func(bool)
}

// NewTracker creates a tracker, notifier may be nil
func NewTracker(n notify.Notifier) *Tracker {
	return &Tracker{notifier: n}
}

// Enabled returns the current flag
func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// OnChange registers fn to receive the new flag on each transition
func (t *Tracker) OnChange(fn func(bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Observe scans terminal output; each failed wow command toggles the flag
// Returns true if the flag changed
func (t *Tracker) Observe(output string) bool {
	if !Match(output) {
		return false
	}
	return t.update(func(cur bool) bool { return !cur })
}

// Set updates the flag, notifying only on an actual transition
func (t *Tracker) Set(on bool) bool {
	return t.update(func(bool) bool { return on })
}

// update applies next atomically and announces the edge outside the lock
func (t *Tracker) update(next func(bool) bool) bool {
	t.mu.Lock()
	on := next(t.enabled)
	if t.enabled == on {
		t.mu.Unlock()
		return false
	}
	t.enabled = on
	observers := slices.Clone(t.observers)
	n := t.notifier
	t.mu.Unlock()

	if n != nil {
		msg := MessageOff
		if on {
			msg = MessageOn
		}
		n.Notify(msg, "")
	}
	for _, fn := range observers {
		fn(on)
	}
	return true
}
