package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an expression variant.
type Kind int

const (
	KindTensor Kind = iota
	KindProduct
	KindSum
	KindConstant
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindTensor:
		return "tensor"
	case KindProduct:
		return "product"
	case KindSum:
		return "sum"
	case KindConstant:
		return "constant"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Expr is a symbolic expression. The set of implementations is closed:
// *Tensor, *Product, *Sum and Constant.
type Expr interface {
	Kind() Kind
	String() string
	isExpr()
}

// Constant is a scalar expression.
type Constant struct {
	Value complex128
}

// Kind implements Expr.
func (Constant) Kind() Kind { return KindConstant }

func (Constant) isExpr() {}

// String implements Expr.
func (c Constant) String() string { return FormatScalar(c.Value) }

// Product is an n-ary product of factors times a scalar.
//
// The Scalar field is used as is; a zero Scalar scales the product to zero.
// Use [NewProduct] for a product with an explicit scalar.
type Product struct {
	Scalar  complex128
	Factors []Expr
}

// NewProduct returns scalar times the product of factors.
func NewProduct(scalar complex128, factors ...Expr) *Product {
	return &Product{Scalar: scalar, Factors: factors}
}

// Kind implements Expr.
func (*Product) Kind() Kind { return KindProduct }

func (*Product) isExpr() {}

// String implements Expr.
func (p *Product) String() string {
	parts := make([]string, 0, len(p.Factors)+1)
	if p.Scalar != 1 {
		parts = append(parts, FormatScalar(p.Scalar))
	}
	for _, f := range p.Factors {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " * ")
}

// Sum is an n-ary sum of summands.
type Sum struct {
	Summands []Expr
}

// NewSum returns the sum of summands.
func NewSum(summands ...Expr) *Sum {
	return &Sum{Summands: summands}
}

// Kind implements Expr.
func (*Sum) Kind() Kind { return KindSum }

func (*Sum) isExpr() {}

// String implements Expr.
func (s *Sum) String() string {
	parts := make([]string, len(s.Summands))
	for k, e := range s.Summands {
		parts[k] = e.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

// FormatScalar formats a complex scalar compactly: real values print
// without an imaginary part.
func FormatScalar(v complex128) string {
	if imag(v) == 0 {
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	}
	return strconv.FormatComplex(v, 'g', -1, 128)
}

// Walk calls fn for e and every sub-expression in pre-order. Returning false
// from fn skips the children of the current expression.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	switch v := e.(type) {
	case *Product:
		for _, f := range v.Factors {
			Walk(f, fn)
		}
	case *Sum:
		for _, s := range v.Summands {
			Walk(s, fn)
		}
	}
}

// Tensors returns every tensor in e in pre-order.
func Tensors(e Expr) []*Tensor {
	var out []*Tensor
	Walk(e, func(x Expr) bool {
		if t, ok := x.(*Tensor); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}
