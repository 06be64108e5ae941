package cache

import (
	"fmt"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Lifetime tags a cache entry with its reset behaviour.
type Lifetime int

const (
	// Decaying entries are dropped by ResetDecaying. Intermediates use it.
	Decaying Lifetime = iota
	// Persistent entries survive ResetDecaying. Leaf data uses it.
	Persistent
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Decaying:
		return "decaying"
	case Persistent:
		return "persistent"
	}
	return fmt.Sprintf("Lifetime(%d)", int(l))
}

// Stats counts cache activity since creation.
type Stats struct {
	Hits     int
	Misses   int
	Stores   int
	Released int // decaying entries dropped after their last expected use
	Dropped  int // entries dropped by resets
}

// HitRate returns Hits / (Hits + Misses), or 0 before any access.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry[T any] struct {
	value     T
	life      Lifetime
	remaining int // uses left before release; negative means unbounded
}

// Manager is a fingerprint-keyed store of computed values.
//
// Manager is not safe for concurrent use; wrap it in [Shared] when several
// goroutines evaluate against one cache. Stored values are treated as
// immutable by every consumer.
type Manager[T any] struct {
	entries map[fingerprint.Fingerprint]*entry[T]
	budgets map[fingerprint.Fingerprint]int
	stats   Stats
}

// NewManager returns an empty manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		entries: make(map[fingerprint.Fingerprint]*entry[T]),
		budgets: make(map[fingerprint.Fingerprint]int),
	}
}

// Access returns the value stored under key. A miss is not an error.
//
// When key holds a decaying entry with a use budget, Access consumes one use
// and releases the entry once the budget is exhausted.
func (m *Manager[T]) Access(key fingerprint.Fingerprint) (T, bool) {
	v, ok := m.lookup(key)
	if !ok {
		m.stats.Misses++
	}
	return v, ok
}

func (m *Manager[T]) lookup(key fingerprint.Fingerprint) (T, bool) {
	e, ok := m.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	m.stats.Hits++
	if e.life == Decaying && e.remaining > 0 {
		e.remaining--
		if e.remaining == 0 {
			delete(m.entries, key)
			m.stats.Released++
		}
	}
	return e.value, true
}

// Store records value under key and returns it.
//
// Storing a key that is already present fails with DUPLICATE_STORE: it
// means the same computation was performed twice.
func (m *Manager[T]) Store(key fingerprint.Fingerprint, value T, life Lifetime) (T, error) {
	if _, ok := m.entries[key]; ok {
		return value, errors.New(errors.ErrCodeDuplicate, "fingerprint %s stored twice", key.Short())
	}
	e := &entry[T]{value: value, life: life, remaining: -1}
	if n, ok := m.budgets[key]; ok {
		delete(m.budgets, key)
		if life == Decaying {
			// The store itself is the first use.
			e.remaining = n - 1
		}
	}
	m.stats.Stores++
	if e.remaining != 0 {
		m.entries[key] = e
	} else {
		m.stats.Released++
	}
	return value, nil
}

// ExpectUses declares that key will be requested n times in total (the
// computing request included) before the next reset. A decaying entry
// stored under key is then released after its last use instead of at the
// next reset. Non-positive n clears the budget.
func (m *Manager[T]) ExpectUses(key fingerprint.Fingerprint, n int) {
	if n <= 0 {
		delete(m.budgets, key)
		return
	}
	m.budgets[key] = n
}

// Contains reports whether key is present without counting an access.
func (m *Manager[T]) Contains(key fingerprint.Fingerprint) bool {
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of stored entries.
func (m *Manager[T]) Len() int { return len(m.entries) }

// ResetDecaying drops every decaying entry and all use budgets. Persistent
// entries are kept. It returns the number of entries dropped.
func (m *Manager[T]) ResetDecaying() int {
	dropped := 0
	for k, e := range m.entries {
		if e.life == Decaying {
			delete(m.entries, k)
			dropped++
		}
	}
	clear(m.budgets)
	m.stats.Dropped += dropped
	return dropped
}

// ResetAll drops every entry and all use budgets and returns the number of
// entries dropped.
func (m *Manager[T]) ResetAll() int {
	dropped := len(m.entries)
	clear(m.entries)
	clear(m.budgets)
	m.stats.Dropped += dropped
	return dropped
}

// Stats returns activity counters.
func (m *Manager[T]) Stats() Stats { return m.stats }
