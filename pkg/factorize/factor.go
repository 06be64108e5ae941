package factorize

import (
	"slices"

	"github.com/matzehuels/tensorplan/pkg/expr"
)

// Factor rewrites a and b so that their largest common subnetwork is a
// nested product in both. The nested product lists the matched factors in
// a's order, and in b the corresponding factors in the same pairing, so
// both binarize to the same fingerprint. It takes the place of the first
// matched factor; the remaining factors keep their relative order.
//
// When there is no common subnetwork, a and b are returned unchanged and
// shared is nil.
func Factor(a, b *expr.Product, opts ...Option) (fa, fb *expr.Product, shared *expr.Product, err error) {
	posA, posB, err := LargestCommonSubnet(a.Factors, b.Factors, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(posA) == 0 {
		return a, b, nil, nil
	}
	fa, shared = nest(a, posA)
	fb, _ = nest(b, posB)
	return fa, fb, shared, nil
}

// nest returns p with the factors at pos moved into a nested product,
// ordered as listed in pos.
func nest(p *expr.Product, pos []int) (*expr.Product, *expr.Product) {
	inner := make([]expr.Expr, len(pos))
	for k, i := range pos {
		inner[k] = p.Factors[i]
	}
	sub := expr.NewProduct(1, inner...)

	first := slices.Min(pos)
	outer := make([]expr.Expr, 0, len(p.Factors)-len(pos)+1)
	for i, f := range p.Factors {
		switch {
		case i == first:
			outer = append(outer, sub)
		case slices.Contains(pos, i):
		default:
			outer = append(outer, f)
		}
	}
	return expr.NewProduct(p.Scalar, outer...), sub
}
