package leaf

import (
	"context"
	"strings"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
)

// Yielder produces the numeric value of a leaf tensor.
//
// The tensor passed to Yield is the canonical orientation chosen by the
// binarizer, and the returned value must be laid out bra indices first,
// then ket indices, in that order. Implementations that cannot supply a
// tensor return an error coded MISSING_LEAF.
type Yielder[T any] interface {
	Yield(ctx context.Context, t *expr.Tensor) (T, error)
}

// YielderFunc adapts a function to the Yielder interface.
type YielderFunc[T any] func(ctx context.Context, t *expr.Tensor) (T, error)

// Yield calls f(ctx, t).
func (f YielderFunc[T]) Yield(ctx context.Context, t *expr.Tensor) (T, error) {
	return f(ctx, t)
}

// Key returns the descriptor of t: its label and the space of every bra
// and ket slot, e.g. "g{occ,occ;virt,virt}". Index labels are not part of
// the key, so g{i,j;a,b} and g{k,l;c,d} share one.
func Key(t *expr.Tensor) string {
	var b strings.Builder
	b.WriteString(t.Label)
	b.WriteByte('{')
	writeSpaces(&b, t.Bra)
	b.WriteByte(';')
	writeSpaces(&b, t.Ket)
	b.WriteByte('}')
	return b.String()
}

func writeSpaces(b *strings.Builder, indices []expr.Index) {
	for k, idx := range indices {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(idx.Space.Name)
	}
}

// Missing returns the error reported when no value exists for t.
func Missing(t *expr.Tensor) error {
	return errors.New(errors.ErrCodeMissingLeaf, "no data for leaf %s", Key(t))
}

// Chain returns a yielder that asks each of ys in turn, moving on only when
// a yielder reports MISSING_LEAF.
func Chain[T any](ys ...Yielder[T]) Yielder[T] {
	return YielderFunc[T](func(ctx context.Context, t *expr.Tensor) (T, error) {
		for _, y := range ys {
			v, err := y.Yield(ctx, t)
			if err == nil || !errors.Is(err, errors.ErrCodeMissingLeaf) {
				return v, err
			}
		}
		var zero T
		return zero, Missing(t)
	})
}
