package state

import (
	"slices"
	"sync"
)

// Store owns the current snapshot and serializes Dispatch.
type Store struct {
	mu        sync.Mutex
	current   Snapshot
	listeners []func(Snapshot)
}

// NewStore starts from the empty snapshot.
func NewStore() *Store {
	return &Store{current: Empty()}
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn to receive every new snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Dispatch applies ev and returns the resulting snapshot.
func (s *Store) Dispatch(ev Event) Snapshot {
	s.mu.Lock()
	s.current = Reduce(s.current, ev)
	next := s.current
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}
