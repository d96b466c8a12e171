package airquality

import (
	"context"
	"sync"
)

// Resolver produces a record for coordinates and never fails.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) Record
}

// Store holds the current record for one page lifetime. Widgets read
// snapshots and subscribe to replacements; only the location flow and
// the search box write.
type Store struct {
	resolver Resolver

	mu      sync.RWMutex
	current Record
	subs    map[int]func(Record)
	order   []int
	nextID  int
}

// NewStore creates a store seeded with the initial record.
func NewStore(initial Record, resolver Resolver) *Store {
	return &Store{
		resolver: resolver,
		current:  initial.Clone(),
		subs:     make(map[int]func(Record)),
	}
}

// Current returns a copy of the current record.
func (s *Store) Current() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set replaces the current record and notifies subscribers in the order
// they subscribed.
func (s *Store) Set(rec Record) {
	s.mu.Lock()
	s.current = rec.Clone()
	listeners := make([]func(Record), 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(rec.Clone())
	}
}

// Refetch resolves the record for the coordinates and installs it.
func (s *Store) Refetch(ctx context.Context, lat, lon float64) Record {
	rec := s.resolver.Resolve(ctx, lat, lon)
	s.Set(rec)
	return rec
}

// Subscribe registers fn for every future Set. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Record)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}
