package cache

import (
	"sync"

	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Shared is a Manager that several goroutines may evaluate against.
//
// A miss in Access claims the key for the caller. Until the claimant calls
// Store or Abandon, other goroutines accessing the same key block and then
// observe the stored value, so no fingerprint is computed by two goroutines
// at once. A claimant must not Access a key it has claimed itself.
type Shared[T any] struct {
	mu       sync.Mutex
	inner    *Manager[T]
	inflight map[fingerprint.Fingerprint]chan struct{}
}

// NewShared returns an empty shared cache.
func NewShared[T any]() *Shared[T] {
	return &Shared[T]{
		inner:    NewManager[T](),
		inflight: make(map[fingerprint.Fingerprint]chan struct{}),
	}
}

// Access returns the value stored under key, waiting for an in-flight
// computation of key to finish. On a miss the caller owns the key.
func (s *Shared[T]) Access(key fingerprint.Fingerprint) (T, bool) {
	s.mu.Lock()
	for {
		if v, ok := s.inner.lookup(key); ok {
			s.mu.Unlock()
			return v, true
		}
		ch, busy := s.inflight[key]
		if !busy {
			s.inflight[key] = make(chan struct{})
			s.inner.stats.Misses++
			s.mu.Unlock()
			var zero T
			return zero, false
		}
		s.mu.Unlock()
		<-ch
		s.mu.Lock()
	}
}

// Store records value under key and wakes goroutines waiting for it.
func (s *Shared[T]) Store(key fingerprint.Fingerprint, value T, life Lifetime) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.inner.Store(key, value, life)
	s.release(key)
	return v, err
}

// Abandon gives up a claim without storing a value. One waiting goroutine
// then claims the key in turn.
func (s *Shared[T]) Abandon(key fingerprint.Fingerprint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(key)
}

func (s *Shared[T]) release(key fingerprint.Fingerprint) {
	if ch, ok := s.inflight[key]; ok {
		close(ch)
		delete(s.inflight, key)
	}
}

// ExpectUses declares a use budget for key; see Manager.ExpectUses.
func (s *Shared[T]) ExpectUses(key fingerprint.Fingerprint, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ExpectUses(key, n)
}

// Contains reports whether key is present without counting an access.
func (s *Shared[T]) Contains(key fingerprint.Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Contains(key)
}

// Len returns the number of stored entries.
func (s *Shared[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Len()
}

// ResetDecaying drops decaying entries; see Manager.ResetDecaying.
func (s *Shared[T]) ResetDecaying() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ResetDecaying()
}

// ResetAll drops every entry; see Manager.ResetAll.
func (s *Shared[T]) ResetAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.ResetAll()
}

// Stats returns activity counters.
func (s *Shared[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Stats()
}
