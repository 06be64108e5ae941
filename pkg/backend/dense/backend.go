package dense

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/tensorplan/pkg/backend"
	"github.com/matzehuels/tensorplan/pkg/errors"
)

// Backend implements backend.Backend for *Tensor.
type Backend struct{}

var _ backend.Backend[*Tensor] = Backend{}

// Zeros implements backend.Backend.
func (Backend) Zeros(shape []int) *Tensor { return New(shape...) }

// Shape implements backend.Backend.
func (Backend) Shape(t *Tensor) []int { return t.Shape() }

// Scale implements backend.Backend.
func (Backend) Scale(alpha float64, t *Tensor) *Tensor {
	out := t.Clone()
	floats.Scale(alpha, out.data)
	return out
}

// Permute implements backend.Backend.
func (Backend) Permute(alpha float64, t *Tensor, labels, outLabels []string) (*Tensor, error) {
	if len(labels) != t.Rank() {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "labels %v for rank-%d tensor", labels, t.Rank())
	}
	p, err := backend.Permutation(labels, outLabels)
	if err != nil {
		return nil, err
	}
	return permute(alpha, t, p), nil
}

// AddPermuted implements backend.Backend.
func (b Backend) AddPermuted(dst *Tensor, dstLabels []string, alpha float64, src *Tensor, srcLabels []string) error {
	aligned, err := b.Permute(alpha, src, srcLabels, dstLabels)
	if err != nil {
		return err
	}
	if !slices.Equal(aligned.shape, dst.shape) {
		return errors.New(errors.ErrCodeShapeMismatch, "cannot add shape %v to %v", aligned.shape, dst.shape)
	}
	floats.Add(dst.data, aligned.data)
	return nil
}

// Contract implements backend.Backend.
//
// Pure contractions are mapped onto a matrix product: a is permuted to
// (free, contracted), b to (contracted, free), multiplied with gonum and
// the result permuted to outLabels. Labels shared by a, b and the output
// (Hadamard modes) use a direct loop.
func (b Backend) Contract(alpha float64, x *Tensor, xLabels []string, y *Tensor, yLabels []string, outLabels []string) (*Tensor, error) {
	ext, err := extents(x, xLabels, y, yLabels)
	if err != nil {
		return nil, err
	}
	inOut := set(outLabels)
	inX, inY := set(xLabels), set(yLabels)
	for _, l := range outLabels {
		if !inX[l] && !inY[l] {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "output label %s not in operands", l)
		}
	}

	var freeX, freeY, contracted []string
	hadamard := false
	for _, l := range xLabels {
		switch {
		case inY[l] && inOut[l]:
			hadamard = true
		case inY[l]:
			contracted = append(contracted, l)
		case inOut[l]:
			freeX = append(freeX, l)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "label %s is summed within one operand", l)
		}
	}
	for _, l := range yLabels {
		if !inX[l] {
			if !inOut[l] {
				return nil, errors.New(errors.ErrCodeUnsupported, "label %s is summed within one operand", l)
			}
			freeY = append(freeY, l)
		}
	}
	if hadamard {
		return b.contractLoop(alpha, x, xLabels, y, yLabels, outLabels, ext)
	}

	m, k, n := volume(ext, freeX), volume(ext, contracted), volume(ext, freeY)
	resultLabels := append(slices.Clone(freeX), freeY...)
	resultShape := make([]int, len(resultLabels))
	for i, l := range resultLabels {
		resultShape[i] = ext[l]
	}
	if m == 0 || k == 0 || n == 0 {
		return b.Permute(1, New(resultShape...), resultLabels, outLabels)
	}

	xp, err := b.Permute(1, x, xLabels, append(slices.Clone(freeX), contracted...))
	if err != nil {
		return nil, err
	}
	yp, err := b.Permute(1, y, yLabels, append(slices.Clone(contracted), freeY...))
	if err != nil {
		return nil, err
	}

	var c mat.Dense
	c.Mul(mat.NewDense(m, k, xp.data), mat.NewDense(k, n, yp.data))
	raw := c.RawMatrix()
	data := make([]float64, 0, m*n)
	for r := 0; r < raw.Rows; r++ {
		data = append(data, raw.Data[r*raw.Stride:r*raw.Stride+raw.Cols]...)
	}
	result, err := FromData(resultShape, data)
	if err != nil {
		return nil, err
	}
	return b.Permute(alpha, result, resultLabels, outLabels)
}

// contractLoop evaluates the contraction element by element over the union
// of all labels.
func (Backend) contractLoop(alpha float64, x *Tensor, xLabels []string, y *Tensor, yLabels []string, outLabels []string, ext map[string]int) (*Tensor, error) {
	all := slices.Clone(xLabels)
	for _, l := range yLabels {
		if !slices.Contains(all, l) {
			all = append(all, l)
		}
	}
	outShape := make([]int, len(outLabels))
	for i, l := range outLabels {
		outShape[i] = ext[l]
	}
	out := New(outShape...)
	if volume(ext, all) == 0 {
		return out, nil
	}

	xs, ys, os := strideMap(x, xLabels), strideMap(y, yLabels), strideMap(out, outLabels)
	idx := make([]int, len(all))
	xo, yo, oo := 0, 0, 0
	for {
		out.data[oo] += alpha * x.data[xo] * y.data[yo]
		m := len(all) - 1
		for ; m >= 0; m-- {
			l := all[m]
			idx[m]++
			xo += xs[l]
			yo += ys[l]
			oo += os[l]
			if idx[m] < ext[l] {
				break
			}
			xo -= idx[m] * xs[l]
			yo -= idx[m] * ys[l]
			oo -= idx[m] * os[l]
			idx[m] = 0
		}
		if m < 0 {
			return out, nil
		}
	}
}

// extents collects the extent of every label, checking that shared labels
// agree and that no operand repeats a label.
func extents(x *Tensor, xLabels []string, y *Tensor, yLabels []string) (map[string]int, error) {
	ext := make(map[string]int, len(xLabels)+len(yLabels))
	for _, op := range []struct {
		t      *Tensor
		labels []string
	}{{x, xLabels}, {y, yLabels}} {
		if len(op.labels) != op.t.Rank() {
			return nil, errors.New(errors.ErrCodeShapeMismatch, "labels %v for rank-%d tensor", op.labels, op.t.Rank())
		}
		seen := make(map[string]bool, len(op.labels))
		for i, l := range op.labels {
			if seen[l] {
				return nil, errors.New(errors.ErrCodeUnsupported, "label %s repeated within one operand", l)
			}
			seen[l] = true
			if e, ok := ext[l]; ok && e != op.t.shape[i] {
				return nil, errors.New(errors.ErrCodeShapeMismatch, "label %s has extents %d and %d", l, e, op.t.shape[i])
			}
			ext[l] = op.t.shape[i]
		}
	}
	return ext, nil
}

func strideMap(t *Tensor, labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = t.strides[i]
	}
	return m
}

func volume(ext map[string]int, labels []string) int {
	v := 1
	for _, l := range labels {
		v *= ext[l]
	}
	return v
}

func set(labels []string) map[string]bool {
	s := make(map[string]bool, len(labels))
	for _, l := range labels {
		s[l] = true
	}
	return s
}
