package engine

import (
	"maps"
	"slices"
	"sync"
)

// CursorEvent is a cursor position relative to the host container origin
type CursorEvent struct {
	X, Y float64
}

// CursorSource notifies subscribers when the terminal cursor moves
// The engine depends only on this contract, not on how positions are acquired
type CursorSource interface {
	Subscribe(fn func(CursorEvent)) (unsubscribe func())
}

// listeners is the subscription registry shared by the source adapters
type listeners struct {
	mu     sync.Mutex
	subs   map[uint64]func(CursorEvent)
	nextID uint64
}

func (l *listeners) add(fn func(CursorEvent)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subs == nil {
		l.subs = make(map[uint64]func(CursorEvent))
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(ev CursorEvent) {
	l.mu.Lock()
	fns := make([]func(CursorEvent), 0, len(l.subs))
	for _, id := range slices.Sorted(maps.Keys(l.subs)) {
		fns = append(fns, l.subs[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// CallbackSource is the push adapter: the host calls Emit on every cursor move
type CallbackSource struct {
	listeners
}

// NewCallbackSource creates a push-based cursor source
func NewCallbackSource() *CallbackSource {
	return &CallbackSource{}
}

// Subscribe implements CursorSource
func (s *CallbackSource) Subscribe(fn func(CursorEvent)) func() {
	return s.add(fn)
}

// Emit delivers a cursor move to all subscribers
func (s *CallbackSource) Emit(ev CursorEvent) {
	s.emit(ev)
}

// ObservedSource is the observe adapter: the host reports that something changed
// via Mutated, the adapter probes the cursor and emits only when it actually moved
type ObservedSource struct {
	listeners
	probe func() (CursorEvent, bool)

	mu   sync.Mutex
	last CursorEvent
	seen bool
}

// NewObservedSource creates a source reading cursor positions through probe
// probe returns false when the cursor cannot be located
func NewObservedSource(probe func() (CursorEvent, bool)) *ObservedSource {
	return &ObservedSource{probe: probe}
}

// Subscribe implements CursorSource
func (s *ObservedSource) Subscribe(fn func(CursorEvent)) func() {
	return s.add(fn)
}

// Mutated re-reads the cursor, returns true if a move was emitted
func (s *ObservedSource) Mutated() bool {
	ev, ok := s.probe()
	if !ok {
		return false
	}

	s.mu.Lock()
	if s.seen && s.last == ev {
		s.mu.Unlock()
		return false
	}
	s.last = ev
	s.seen = true
	s.mu.Unlock()

	s.emit(ev)
	return true
}
