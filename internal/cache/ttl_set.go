package cache

import (
	"sync"
	"time"
)

// TTLSet is a map-backed Set guarded by a RWMutex. Expired entries are
// ignored on read and removed on PurgeExpired or on the next Add.
type TTLSet[K comparable] struct {
	mu    sync.RWMutex
	items map[K]time.Time
	now   func() time.Time
}

// Options controls construction of a TTLSet.
type Options struct {
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

func NewTTLSet[K comparable](opts Options) *TTLSet[K] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TTLSet[K]{
		items: make(map[K]time.Time),
		now:   now,
	}
}

func (s *TTLSet[K]) expired(until time.Time, at time.Time) bool {
	return !until.IsZero() && !at.Before(until)
}

// Add implements Set.Add.
func (s *TTLSet[K]) Add(key K, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now()
	if s.expired(until, at) {
		return
	}
	s.purgeLocked(at)
	s.items[key] = until
}

// Contains implements Set.Contains.
func (s *TTLSet[K]) Contains(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	until, ok := s.items[key]
	if !ok {
		return false
	}
	return !s.expired(until, s.now())
}

// Remove implements Set.Remove.
func (s *TTLSet[K]) Remove(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Len implements Set.Len. Only live entries are counted.
func (s *TTLSet[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at := s.now()
	count := 0
	for _, until := range s.items {
		if !s.expired(until, at) {
			count++
		}
	}
	return count
}

// PurgeExpired implements Set.PurgeExpired.
func (s *TTLSet[K]) PurgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(s.now())
}

func (s *TTLSet[K]) purgeLocked(at time.Time) {
	for k, until := range s.items {
		if s.expired(until, at) {
			delete(s.items, k)
		}
	}
}

// Ensure TTLSet implements Set at compile time.
var _ Set[string] = (*TTLSet[string])(nil)
