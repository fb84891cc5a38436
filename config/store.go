package config

import (
	"maps"
	"slices"
	"sync"
)

// Observer receives the full new snapshot after each change
type Observer func(Settings)

// Store holds the current settings snapshot and its change observers
// Get/OnChange form the only read contract; observers run synchronously on the Set caller
type Store struct {
	mu        sync.RWMutex
	current   Settings
	observers map[uint64]Observer
	nextID    uint64
}

// NewStore creates a store seeded with the given snapshot
func NewStore(initial Settings) *Store {
	return &Store{
		current:   initial.Clone(),
		observers: make(map[uint64]Observer),
	}
}

// Get returns a copy of the current snapshot
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set replaces the snapshot and notifies observers if it changed
// Returns true if observers were notified
func (s *Store) Set(next Settings) bool {
	s.mu.Lock()
	if s.current.Equal(next) {
		s.mu.Unlock()
		return false
	}
	s.current = next.Clone()

	// Copy observers to call outside the lock, allowing observers to call Get or unsubscribe
	observers := make([]Observer, 0, len(s.observers))
	for _, id := range slices.Sorted(maps.Keys(s.observers)) {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(next.Clone())
	}
	return true
}

// OnChange registers an observer, returns the unsubscribe function
func (s *Store) OnChange(obs Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = obs

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}
