package leaf

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Slicer yields blocks of full-range tensors.
//
// A full-range tensor of rank r spans every registered space of the
// convention along each mode, in registration order: with spaces occ (10)
// and virt (20) a rank-4 tensor has shape 30x30x30x30 and its
// g{occ,occ;virt,virt} block is the slice [0:10, 0:10, 10:30, 10:30].
type Slicer struct {
	conv *expr.Convention
	mu   sync.RWMutex
	full map[string]*dense.Tensor
}

// NewSlicer returns a slicer for the spaces of conv.
func NewSlicer(conv *expr.Convention) *Slicer {
	return &Slicer{conv: conv, full: make(map[string]*dense.Tensor)}
}

// Add registers the full-range tensor for label.
func (s *Slicer) Add(label string, full *dense.Tensor) error {
	n := s.span()
	for _, e := range full.Shape() {
		if e != n {
			return errors.New(errors.ErrCodeShapeMismatch, "full-range tensor %s has shape %v, want extent %d per mode", label, full.Shape(), n)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full[label] = full
	return nil
}

// Yield implements Yielder.
func (s *Slicer) Yield(_ context.Context, t *expr.Tensor) (*dense.Tensor, error) {
	s.mu.RLock()
	full, ok := s.full[t.Label]
	s.mu.RUnlock()
	if !ok {
		return nil, Missing(t)
	}
	if full.Rank() != t.Rank() {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "leaf %s has rank %d, full-range tensor has rank %d", Key(t), t.Rank(), full.Rank())
	}
	indices := t.Indices()
	lo, hi := make([]int, len(indices)), make([]int, len(indices))
	for k, idx := range indices {
		off, ok := s.offset(idx.Space.Name)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "leaf %s: space %s not in convention", Key(t), idx.Space.Name)
		}
		lo[k] = off
		hi[k] = off + s.conv.Extent(idx)
	}
	return full.Slice(lo, hi)
}

func (s *Slicer) span() int {
	n := 0
	for _, sp := range s.conv.Spaces() {
		n += sp.Extent
	}
	return n
}

func (s *Slicer) offset(space string) (int, bool) {
	off := 0
	for _, sp := range s.conv.Spaces() {
		if sp.Name == space {
			return off, true
		}
		off += sp.Extent
	}
	return 0, false
}

// Random yields reproducible random tensors with elements in [-1, 1).
//
// The generator for a leaf is seeded from the Random's seed and the leaf's
// structural fingerprint, so two leaves with the same fingerprint always
// receive the same data regardless of their index labels. The fingerprint
// must be taken under the same hashing config as the plans being evaluated;
// see WithHashConfig.
type Random struct {
	conv   *expr.Convention
	seed   uint64
	hasher *fingerprint.Hasher
}

// RandomOption configures a Random.
type RandomOption func(*Random)

// WithHashConfig seeds leaves from fingerprints taken under cfg. The default
// is real mode, in which a conjugate tensor and its transpose share a
// stream.
func WithHashConfig(cfg fingerprint.Config) RandomOption {
	return func(r *Random) {
		r.hasher = fingerprint.New(cfg)
	}
}

// NewRandom returns a random yielder sized by conv.
func NewRandom(conv *expr.Convention, seed uint64, opts ...RandomOption) *Random {
	r := &Random{conv: conv, seed: seed, hasher: fingerprint.New(fingerprint.Config{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Yield implements Yielder.
func (r *Random) Yield(_ context.Context, t *expr.Tensor) (*dense.Tensor, error) {
	shape, err := Shape(r.conv, t)
	if err != nil {
		return nil, err
	}
	_, fp := r.hasher.Leaf(t)
	var stream uint64
	for _, b := range fp[:8] {
		stream = stream<<8 | uint64(b)
	}
	out := dense.New(shape...)
	out.FillRandom(rand.New(rand.NewPCG(r.seed, stream)))
	return out, nil
}

// Shape returns the extents of t's bra and ket slots under conv. Every
// space must have a known, positive extent.
func Shape(conv *expr.Convention, t *expr.Tensor) ([]int, error) {
	indices := t.Indices()
	shape := make([]int, len(indices))
	for k, idx := range indices {
		e := conv.Extent(idx)
		if e <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "space %s has no extent", idx.Space.Name)
		}
		shape[k] = e
	}
	return shape, nil
}
