package factorize

import (
	"slices"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// minMatch is the smallest match worth reporting.
const minMatch = 2

// LargestCommonSubnet returns the positions of the largest common
// subnetwork of two factor lists. posA[k] and posB[k] are a matched pair.
// Both lists are empty when no two factors match.
func LargestCommonSubnet(a, b []expr.Expr, opts ...Option) (posA, posB []int, err error) {
	na, err := NewNetwork(a, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "first network")
	}
	nb, err := NewNetwork(b, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "second network")
	}
	match := MatchNetworks(na, nb)
	if len(match) < minMatch {
		return []int{}, []int{}, nil
	}
	posA = make([]int, len(match))
	posB = make([]int, len(match))
	for k, m := range match {
		posA[k] = na.Position(m[0])
		posB[k] = nb.Position(m[1])
	}
	return posA, posB, nil
}

// MatchNetworks returns the maximum common induced subgraph of a and b as
// (vertex in a, vertex in b) pairs, with vertices of a ascending.
//
// The search is a depth-first branch and bound over the vertices of a: each
// vertex is first paired with every compatible unused vertex of b in
// ascending order, then left unmatched. A branch is cut once it cannot
// exceed the best match found so far, so the first maximum found is the
// lexicographically smallest.
func MatchNetworks(a, b *Network) [][2]int {
	m := &matcher{a: a, b: b, usedB: make([]bool, b.Len())}
	m.search(0)
	return m.best
}

type matcher struct {
	a, b  *Network
	usedB []bool
	cur   [][2]int
	best  [][2]int
}

func (m *matcher) search(u int) {
	if len(m.cur)+m.a.Len()-u <= len(m.best) {
		return
	}
	if u == m.a.Len() {
		m.best = slices.Clone(m.cur)
		return
	}
	for v := 0; v < m.b.Len(); v++ {
		if m.usedB[v] || !m.compatible(u, v) {
			continue
		}
		m.usedB[v] = true
		m.cur = append(m.cur, [2]int{u, v})
		m.search(u + 1)
		m.cur = m.cur[:len(m.cur)-1]
		m.usedB[v] = false
	}
	m.search(u + 1)
}

// compatible reports whether pairing u with v keeps the partial match an
// isomorphism: equal labels, and equal bonds to every vertex matched so far.
func (m *matcher) compatible(u, v int) bool {
	if m.a.Label(u) != m.b.Label(v) {
		return false
	}
	for _, p := range m.cur {
		if !slices.Equal(m.a.Bonds(p[0], u), m.b.Bonds(p[1], v)) {
			return false
		}
	}
	return true
}

// LargestCommonSummands returns the positions of summands that a and b have
// in common, compared by the fingerprint of their evaluation plans. Each
// summand of a is paired with the first unused summand of b with an equal
// fingerprint. Both lists are empty when fewer than two summands match.
func LargestCommonSummands(a, b *expr.Sum, opts ...Option) (posA, posB []int, err error) {
	if a == nil || b == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidExpression, "nil sum")
	}
	o := newOptions(opts)
	fa, err := summandFingerprints(a, o)
	if err != nil {
		return nil, nil, err
	}
	fb, err := summandFingerprints(b, o)
	if err != nil {
		return nil, nil, err
	}

	used := make([]bool, len(fb))
	posA, posB = []int{}, []int{}
	for i, f := range fa {
		for j, g := range fb {
			if !used[j] && f == g {
				used[j] = true
				posA = append(posA, i)
				posB = append(posB, j)
				break
			}
		}
	}
	if len(posA) < minMatch {
		return []int{}, []int{}, nil
	}
	return posA, posB, nil
}

func summandFingerprints(s *expr.Sum, o options) ([]string, error) {
	out := make([]string, len(s.Summands))
	for k, e := range s.Summands {
		p, err := plan.Binarize(e, plan.WithConfig(o.cfg))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "summand %d", k)
		}
		out[k] = p.Fingerprint().String()
	}
	return out, nil
}

// Common dispatches to [LargestCommonSubnet] for two products and to
// [LargestCommonSummands] for two sums. Any other pair of expressions has
// no common subnetwork.
func Common(a, b expr.Expr, opts ...Option) (posA, posB []int, err error) {
	if a == nil || b == nil {
		return nil, nil, errors.New(errors.ErrCodeInvalidExpression, "nil expression")
	}
	switch x := a.(type) {
	case *expr.Product:
		if y, ok := b.(*expr.Product); ok {
			return LargestCommonSubnet(x.Factors, y.Factors, opts...)
		}
	case *expr.Sum:
		if y, ok := b.(*expr.Sum); ok {
			return LargestCommonSummands(x, y, opts...)
		}
	case *expr.Tensor, expr.Constant:
	default:
		return nil, nil, errors.New(errors.ErrCodeInternal, "unknown expression kind %v", a.Kind())
	}
	return []int{}, []int{}, nil
}
