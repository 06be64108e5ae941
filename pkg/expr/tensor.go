package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/tensorplan/pkg/errors"
)

// Symmetry describes how a tensor behaves under permutations of its bra (or
// ket) indices among themselves.
type Symmetry int

const (
	Nonsymmetric Symmetry = iota
	Symmetric
	Antisymmetric
)

// String returns the short name used in expression files.
func (s Symmetry) String() string {
	switch s {
	case Nonsymmetric:
		return "nonsymm"
	case Symmetric:
		return "symm"
	case Antisymmetric:
		return "antisymm"
	}
	return fmt.Sprintf("Symmetry(%d)", int(s))
}

// ParseSymmetry parses the names accepted by String plus the long forms
// "nonsymmetric", "symmetric" and "antisymmetric". An empty string is
// Nonsymmetric.
func ParseSymmetry(s string) (Symmetry, error) {
	switch strings.ToLower(s) {
	case "", "nonsymm", "nonsymmetric":
		return Nonsymmetric, nil
	case "symm", "symmetric":
		return Symmetric, nil
	case "antisymm", "antisymmetric":
		return Antisymmetric, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown symmetry %q", s)
}

// BraKet describes the relation between a tensor and its bra/ket transpose.
type BraKet int

const (
	// BraKetDistinct: swapping bra and ket yields a different tensor.
	BraKetDistinct BraKet = iota
	// BraKetSymmetric: swapping bra and ket yields the same tensor.
	BraKetSymmetric
	// BraKetConjugate: swapping bra and ket yields the complex conjugate.
	// In real arithmetic this is the same as BraKetSymmetric.
	BraKetConjugate
)

// String returns the short name used in expression files.
func (b BraKet) String() string {
	switch b {
	case BraKetDistinct:
		return "nonsymm"
	case BraKetSymmetric:
		return "symm"
	case BraKetConjugate:
		return "conjugate"
	}
	return fmt.Sprintf("BraKet(%d)", int(b))
}

// ParseBraKet parses the names accepted by String. An empty string is
// BraKetDistinct.
func ParseBraKet(s string) (BraKet, error) {
	switch strings.ToLower(s) {
	case "", "nonsymm", "distinct":
		return BraKetDistinct, nil
	case "symm", "symmetric":
		return BraKetSymmetric, nil
	case "conj", "conjugate":
		return BraKetConjugate, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown bra-ket relation %q", s)
}

// Tensor is an indexed tensor.
//
// Tensors are immutable after construction. Methods that produce a variant
// (such as [Tensor.Transposed]) return a new value.
type Tensor struct {
	Label    string
	Bra      []Index
	Ket      []Index
	Symmetry Symmetry
	BraKet   BraKet
}

// TensorOption configures optional tensor attributes.
type TensorOption func(*Tensor)

// WithSymmetry sets the particle symmetry.
func WithSymmetry(s Symmetry) TensorOption {
	return func(t *Tensor) { t.Symmetry = s }
}

// WithBraKet sets the bra-ket relation.
func WithBraKet(b BraKet) TensorOption {
	return func(t *Tensor) { t.BraKet = b }
}

// NewTensor validates and builds a tensor. The index slices are copied.
//
// A label repeated within one tensor is rejected: traces over a single
// tensor are not contractions the engine evaluates.
func NewTensor(label string, bra, ket []Index, opts ...TensorOption) (*Tensor, error) {
	if err := errors.ValidateLabel(label); err != nil {
		return nil, err
	}
	t := &Tensor{
		Label: label,
		Bra:   slices.Clone(bra),
		Ket:   slices.Clone(ket),
	}
	for _, opt := range opts {
		opt(t)
	}
	seen := make(map[string]bool, t.Rank())
	for _, idx := range t.Indices() {
		if err := errors.ValidateLabel(idx.Label); err != nil {
			return nil, err
		}
		if idx.Space.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "tensor %s: index %s has no space", label, idx.Label)
		}
		if seen[idx.Label] {
			return nil, errors.New(errors.ErrCodeMalformed, "tensor %s: index %s repeated", label, idx.Label)
		}
		seen[idx.Label] = true
	}
	return t, nil
}

// Kind implements Expr.
func (*Tensor) Kind() Kind { return KindTensor }

func (*Tensor) isExpr() {}

// Rank returns the total number of indices.
func (t *Tensor) Rank() int { return len(t.Bra) + len(t.Ket) }

// Indices returns bra indices followed by ket indices.
func (t *Tensor) Indices() []Index {
	out := make([]Index, 0, t.Rank())
	out = append(out, t.Bra...)
	return append(out, t.Ket...)
}

// Transposed returns the tensor with bra and ket exchanged.
func (t *Tensor) Transposed() *Tensor {
	return &Tensor{
		Label:    t.Label,
		Bra:      slices.Clone(t.Ket),
		Ket:      slices.Clone(t.Bra),
		Symmetry: t.Symmetry,
		BraKet:   t.BraKet,
	}
}

// String returns the tensor in brace notation, e.g. "t{i_1,i_2;a_1,a_2}".
func (t *Tensor) String() string {
	var b strings.Builder
	b.WriteString(t.Label)
	b.WriteByte('{')
	for k, idx := range t.Bra {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(idx.String())
	}
	b.WriteByte(';')
	for k, idx := range t.Ket {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(idx.String())
	}
	b.WriteByte('}')
	return b.String()
}
