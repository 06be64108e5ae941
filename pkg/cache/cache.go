// Package cache memoizes evaluation results by structural fingerprint.
//
// # Overview
//
// The evaluator looks up every plan node by its fingerprint before
// computing it and stores what it computes. Since fingerprints are
// invariant under dummy-index renaming, a contraction that appears several
// times (within one plan or across plans) is computed once.
//
// # Lifetimes
//
// Entries carry a [Lifetime]:
//
//   - [Persistent]: leaf data. Survives [Manager.ResetDecaying].
//   - [Decaying]: intermediates. Dropped by ResetDecaying, e.g. between
//     iterations of a solver whose amplitudes change while the integrals
//     stay fixed.
//
// [Manager.ResetAll] drops everything; call it after a failed evaluation
// before retrying.
//
// # Use Budgets
//
// [Manager.ExpectUses] declares how often a fingerprint will be requested.
// Decaying entries are then released after their last expected use, which
// bounds peak memory for large plans:
//
//	for fp, n := range p.Accesses() {
//	    c.ExpectUses(fp, n)
//	}
//
// # Implementations
//
//   - [Manager]: single-goroutine cache.
//   - [Shared]: thread-safe cache whose misses claim keys, so concurrent
//     evaluations never compute the same fingerprint simultaneously.
//   - [Null]: never stores; every node is recomputed.
package cache

import "github.com/matzehuels/tensorplan/pkg/fingerprint"

// Cache is the interface the evaluator stores results through.
type Cache[T any] interface {
	// Access returns the value under key. A miss is not an error.
	Access(key fingerprint.Fingerprint) (T, bool)

	// Store records value under key and returns it. Storing a present key
	// fails with DUPLICATE_STORE.
	Store(key fingerprint.Fingerprint, value T, life Lifetime) (T, error)

	// ResetDecaying drops decaying entries.
	ResetDecaying() int

	// ResetAll drops every entry.
	ResetAll() int

	// Len returns the number of stored entries.
	Len() int

	// Stats returns activity counters.
	Stats() Stats
}

// Claimer is implemented by caches whose misses claim the key for the
// caller. A caller that fails to compute a claimed key must abandon it.
type Claimer interface {
	Abandon(key fingerprint.Fingerprint)
}

// Budgeter is implemented by caches that accept use budgets.
type Budgeter interface {
	ExpectUses(key fingerprint.Fingerprint, n int)
}

var (
	_ Cache[int] = (*Manager[int])(nil)
	_ Cache[int] = (*Shared[int])(nil)
	_ Cache[int] = (*Null[int])(nil)
	_ Claimer    = (*Shared[int])(nil)
	_ Budgeter   = (*Manager[int])(nil)
	_ Budgeter   = (*Shared[int])(nil)
)
