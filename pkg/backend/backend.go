// Package backend defines the numeric operations the evaluator needs from a
// tensor library.
//
// The evaluator never inspects tensor data itself. Every value it handles
// is an opaque T produced and consumed by a [Backend]. Operands are
// annotated with index labels, one per mode, and the backend matches modes
// by label:
//
//	out, err := b.Contract(1, g, []string{"i", "j", "a", "b"}, t, []string{"a", "b"}, []string{"i", "j"})
//
// Scalars are real. Complex prefactors are narrowed by the evaluator before
// they reach a backend.
//
// [dense] provides an in-memory float64 implementation.
//
// [dense]: github.com/matzehuels/tensorplan/pkg/backend/dense
package backend

import (
	"github.com/matzehuels/tensorplan/pkg/errors"
)

// Backend performs tensor arithmetic on values of type T.
//
// Implementations must not modify operands other than the documented
// destination of AddPermuted. Values returned by the backend may be cached
// and shared.
type Backend[T any] interface {
	// Zeros returns a zero tensor of the given shape.
	Zeros(shape []int) T

	// Shape returns the extent of every mode of t.
	Shape(t T) []int

	// Scale returns alpha * t.
	Scale(alpha float64, t T) T

	// Contract returns out(outLabels) = alpha * sum a(aLabels) * b(bLabels),
	// summing over labels shared by a and b that are absent from outLabels.
	Contract(alpha float64, a T, aLabels []string, b T, bLabels []string, outLabels []string) (T, error)

	// Permute returns alpha * t re-annotated from labels to outLabels, a
	// permutation of labels. The result is a new value the caller owns.
	Permute(alpha float64, t T, labels, outLabels []string) (T, error)

	// AddPermuted accumulates dst(dstLabels) += alpha * src(srcLabels) in
	// place. srcLabels must be a permutation of dstLabels.
	AddPermuted(dst T, dstLabels []string, alpha float64, src T, srcLabels []string) error
}

// Permutation returns p such that to[i] == from[p[i]]. It fails unless to
// is a permutation of from.
func Permutation(from, to []string) ([]int, error) {
	if len(from) != len(to) {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "cannot map %v onto %v", from, to)
	}
	pos := make(map[string]int, len(from))
	for i, l := range from {
		if _, dup := pos[l]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "label %s repeated in %v", l, from)
		}
		pos[l] = i
	}
	p := make([]int, len(to))
	used := make([]bool, len(from))
	for i, l := range to {
		j, ok := pos[l]
		if !ok || used[j] {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "cannot map %v onto %v", from, to)
		}
		used[j] = true
		p[i] = j
	}
	return p, nil
}
