package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FrameID identifies a pending frame request
type FrameID uint64

// Scheduler is the host's cooperative scheduler: all callbacks run on one goroutine
type Scheduler interface {
	// RequestFrame runs fn once on the next display refresh
	RequestFrame(fn func()) FrameID

	// CancelFrame drops a pending request, unknown or fired ids are ignored
	CancelFrame(id FrameID)

	// After runs fn on the scheduler goroutine once d has elapsed
	After(d time.Duration, fn func())
}

// frameRequest is a pending one-shot frame callback
type frameRequest struct {
	id FrameID
	fn func()
}

// Loop is a ticker-driven Scheduler owning the UI goroutine
// Frame callbacks requested during a frame run on the following tick
type Loop struct {
	interval time.Duration

	mu        sync.Mutex
	frames    []frameRequest
	cancelled map[FrameID]struct{} // Ids cancelled after their batch was taken
	nextID    FrameID
	tasks     []func()
	onFrame   func()

	wake       chan struct{}
	frameCount atomic.Uint64
	running    atomic.Bool
}

// NewLoop creates a loop refreshing at the given interval
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval:  interval,
		cancelled: make(map[FrameID]struct{}),
		wake:      make(chan struct{}, 1),
	}
}

// RequestFrame implements Scheduler
func (l *Loop) RequestFrame(fn func()) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.frames = append(l.frames, frameRequest{id: l.nextID, fn: fn})
	return l.nextID
}

// CancelFrame implements Scheduler
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, req := range l.frames {
		if req.id == id {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
	if id <= l.nextID {
		l.cancelled[id] = struct{}{}
	}
}

// After implements Scheduler
func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Post queues fn to run on the loop goroutine, safe from any goroutine
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// OnFrame sets a hook run after every tick's frame callbacks, used to present output
func (l *Loop) OnFrame(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFrame = fn
}

// Frames returns the number of ticks processed
func (l *Loop) Frames() uint64 {
	return l.frameCount.Load()
}

// Pending returns the number of queued frame callbacks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Run drives the loop until ctx is cancelled, callbacks run on the caller goroutine
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.runTasks()
		case <-ticker.C:
			l.runTasks()
			l.runFrame()
		}
	}
}

// runTasks drains posted tasks
func (l *Loop) runTasks() {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// runFrame swaps out the pending batch so re-requests land on the next tick
func (l *Loop) runFrame() {
	l.mu.Lock()
	batch := l.frames
	l.frames = nil
	hook := l.onFrame
	l.mu.Unlock()

	for _, req := range batch {
		if l.takeCancelled(req.id) {
			continue
		}
		req.fn()
	}
	l.mu.Lock()
	clear(l.cancelled)
	l.mu.Unlock()
	l.frameCount.Add(1)

	if hook != nil {
		hook()
	}
}

// takeCancelled reports and forgets a cancellation for a running batch entry
func (l *Loop) takeCancelled(id FrameID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cancelled[id]; ok {
		delete(l.cancelled, id)
		return true
	}
	return false
}
