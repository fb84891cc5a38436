package engine

import (
	"slices"
	"time"
)

// ManualScheduler is a deterministic Scheduler for tests
// Frames run only on Step, timers only on Advance
type ManualScheduler struct {
	Clock *MockTimeProvider

	frames []frameRequest
	nextID FrameID
	timers []manualTimer
}

type manualTimer struct {
	at time.Time
	fn func()
}

// NewManualScheduler creates a scheduler whose timers follow clock
func NewManualScheduler(clock *MockTimeProvider) *ManualScheduler {
	return &ManualScheduler{Clock: clock}
}

// RequestFrame implements Scheduler
func (m *ManualScheduler) RequestFrame(fn func()) FrameID {
	m.nextID++
	m.frames = append(m.frames, frameRequest{id: m.nextID, fn: fn})
	return m.nextID
}

// CancelFrame implements Scheduler
func (m *ManualScheduler) CancelFrame(id FrameID) {
	m.frames = slices.DeleteFunc(m.frames, func(r frameRequest) bool { return r.id == id })
}

// After implements Scheduler
func (m *ManualScheduler) After(d time.Duration, fn func()) {
	m.timers = append(m.timers, manualTimer{at: m.Clock.Now().Add(d), fn: fn})
}

// Step runs the current frame batch, returns the number of callbacks run
func (m *ManualScheduler) Step() int {
	batch := m.frames
	m.frames = nil
	for _, req := range batch {
		req.fn()
	}
	return len(batch)
}

// RunFrames steps until no frame is pending or limit is reached, returns steps taken
func (m *ManualScheduler) RunFrames(limit int) int {
	steps := 0
	for steps < limit && len(m.frames) > 0 {
		m.Step()
		steps++
	}
	return steps
}

// Pending returns the number of queued frame callbacks
func (m *ManualScheduler) Pending() int {
	return len(m.frames)
}

// Advance moves the clock forward and fires due timers in deadline order
func (m *ManualScheduler) Advance(d time.Duration) {
	m.Clock.Advance(d)
	now := m.Clock.Now()

	slices.SortStableFunc(m.timers, func(a, b manualTimer) int { return a.at.Compare(b.at) })
	var due []manualTimer
	keep := m.timers[:0]
	for _, t := range m.timers {
		if !t.at.After(now) {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	m.timers = keep

	for _, t := range due {
		t.fn()
	}
}
