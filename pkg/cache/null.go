package cache

import "github.com/matzehuels/tensorplan/pkg/fingerprint"

// Null is a cache that never stores anything. Every node is recomputed on
// every request, which is useful for measuring what memoization saves.
type Null[T any] struct {
	stats Stats
}

// NewNull returns a null cache.
func NewNull[T any]() *Null[T] {
	return &Null[T]{}
}

// Access always misses.
func (c *Null[T]) Access(fingerprint.Fingerprint) (T, bool) {
	c.stats.Misses++
	var zero T
	return zero, false
}

// Store returns value without recording it.
func (c *Null[T]) Store(_ fingerprint.Fingerprint, value T, _ Lifetime) (T, error) {
	c.stats.Stores++
	return value, nil
}

// ResetDecaying does nothing.
func (c *Null[T]) ResetDecaying() int { return 0 }

// ResetAll does nothing.
func (c *Null[T]) ResetAll() int { return 0 }

// Len always returns 0.
func (c *Null[T]) Len() int { return 0 }

// Stats returns activity counters.
func (c *Null[T]) Stats() Stats { return c.stats }
