package dense

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/tensorplan/pkg/errors"
)

// Tensor is a dense row-major float64 tensor.
type Tensor struct {
	shape   []int
	strides []int
	data    []float64
}

// New returns a zero tensor with the given shape. A tensor without modes
// holds a single scalar.
func New(shape ...int) *Tensor {
	t := &Tensor{shape: slices.Clone(shape), strides: make([]int, len(shape))}
	size := 1
	for i := len(shape) - 1; i >= 0; i-- {
		t.strides[i] = size
		size *= shape[i]
	}
	t.data = make([]float64, size)
	return t
}

// FromData wraps data in a tensor of the given shape. data is not copied.
func FromData(shape []int, data []float64) (*Tensor, error) {
	t := &Tensor{shape: slices.Clone(shape), strides: make([]int, len(shape))}
	size := 1
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "negative extent in shape %v", shape)
		}
		t.strides[i] = size
		size *= shape[i]
	}
	if len(data) != size {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "shape %v needs %d values, got %d", shape, size, len(data))
	}
	t.data = data
	return t, nil
}

// Shape returns a copy of the tensor's extents.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of modes.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns the backing slice in row-major order.
func (t *Tensor) Data() []float64 { return t.data }

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("dense: index %v for shape %v", idx, t.shape))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("dense: index %v out of range for shape %v", idx, t.shape))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at idx.
func (t *Tensor) At(idx ...int) float64 { return t.data[t.offset(idx)] }

// Set stores v at idx.
func (t *Tensor) Set(v float64, idx ...int) { t.data[t.offset(idx)] = v }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape:   slices.Clone(t.shape),
		strides: slices.Clone(t.strides),
		data:    slices.Clone(t.data),
	}
}

// Norm returns the Frobenius norm.
func (t *Tensor) Norm() float64 { return floats.Norm(t.data, 2) }

// Dot returns the sum of elementwise products with o. Shapes must match.
func (t *Tensor) Dot(o *Tensor) float64 {
	if !slices.Equal(t.shape, o.shape) {
		panic(fmt.Sprintf("dense: Dot of shapes %v and %v", t.shape, o.shape))
	}
	return floats.Dot(t.data, o.data)
}

// EqualApprox reports whether the shapes match and every element agrees
// within tol, absolutely or relatively.
func (t *Tensor) EqualApprox(o *Tensor, tol float64) bool {
	return slices.Equal(t.shape, o.shape) && floats.EqualApprox(t.data, o.data, tol)
}

// FillRandom overwrites every element with a uniform value in [-1, 1).
func (t *Tensor) FillRandom(rng *rand.Rand) {
	for i := range t.data {
		t.data[i] = 2*rng.Float64() - 1
	}
}

// Slice copies the block lo[i] <= idx[i] < hi[i] into a new tensor.
func (t *Tensor) Slice(lo, hi []int) (*Tensor, error) {
	if len(lo) != len(t.shape) || len(hi) != len(t.shape) {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "slice bounds %v..%v for shape %v", lo, hi, t.shape)
	}
	outShape := make([]int, len(t.shape))
	base := 0
	for i := range t.shape {
		if lo[i] < 0 || hi[i] > t.shape[i] || lo[i] > hi[i] {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "slice bounds %v..%v for shape %v", lo, hi, t.shape)
		}
		outShape[i] = hi[i] - lo[i]
		base += lo[i] * t.strides[i]
	}
	out := New(outShape...)
	gather(out, t.data, base, t.strides, 1)
	return out, nil
}

// gather fills out.data[k] = alpha * src[base + sum idx[i]*strides[i]],
// walking out's multi-index in row-major order.
func gather(out *Tensor, src []float64, base int, strides []int, alpha float64) {
	if len(out.data) == 0 {
		return
	}
	idx := make([]int, len(out.shape))
	off := base
	for k := range out.data {
		out.data[k] = alpha * src[off]
		for m := len(idx) - 1; m >= 0; m-- {
			idx[m]++
			off += strides[m]
			if idx[m] < out.shape[m] {
				break
			}
			off -= idx[m] * strides[m]
			idx[m] = 0
		}
	}
}

// permute returns alpha * t with output mode i taken from mode p[i] of t.
func permute(alpha float64, t *Tensor, p []int) *Tensor {
	outShape := make([]int, len(p))
	strides := make([]int, len(p))
	for i, j := range p {
		outShape[i] = t.shape[j]
		strides[i] = t.strides[j]
	}
	out := New(outShape...)
	gather(out, t.data, 0, strides, alpha)
	return out
}
