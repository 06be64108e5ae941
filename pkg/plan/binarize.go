package plan

import (
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Option configures Binarize.
type Option func(*builder)

// WithConfig sets the fingerprint configuration. The default is real mode.
func WithConfig(cfg fingerprint.Config) Option {
	return func(b *builder) { b.hasher = fingerprint.New(cfg) }
}

// WithFolder sets the pairwise combination order. The default is LeftFold.
func WithFolder(f Folder) Option {
	return func(b *builder) {
		if f != nil {
			b.folder = f
		}
	}
}

type builder struct {
	nodes  []Node
	hasher *fingerprint.Hasher
	folder Folder
}

// Binarize converts an n-ary expression into a binary evaluation plan.
//
// Tensors become leaves in canonical orientation. Products fold constant
// factors into their scale and combine the remaining factors pairwise;
// sums combine their summands pairwise. Binarize is deterministic: the same
// expression and options always produce the same plan and fingerprints.
//
// Binarize fails with MALFORMED_COMBINATION when an index label occurs more
// than twice in a product, when sum operands disagree on their free indices
// or their bra/ket roles, and for constants that are not product factors.
func Binarize(e expr.Expr, opts ...Option) (*Plan, error) {
	b := &builder{
		hasher: fingerprint.New(fingerprint.Config{}),
		folder: LeftFold{},
	}
	for _, opt := range opts {
		opt(b)
	}
	root, err := b.build(e)
	if err != nil {
		return nil, err
	}
	return &Plan{nodes: b.nodes, root: root, config: b.hasher.Config()}, nil
}

func (b *builder) add(n Node) NodeID {
	n.ID = NodeID(len(b.nodes))
	b.nodes = append(b.nodes, n)
	return n.ID
}

func (b *builder) build(e expr.Expr) (NodeID, error) {
	switch v := e.(type) {
	case *expr.Tensor:
		return b.leaf(v), nil
	case *expr.Product:
		return b.product(v)
	case *expr.Sum:
		return b.sum(v)
	case expr.Constant:
		return NoNode, errors.New(errors.ErrCodeMalformed, "constant %s outside a product", v)
	case nil:
		return NoNode, errors.New(errors.ErrCodeInvalidExpression, "nil expression")
	}
	return NoNode, errors.New(errors.ErrCodeInternal, "unknown expression kind %v", e.Kind())
}

func (b *builder) leaf(t *expr.Tensor) NodeID {
	canon, fp := b.hasher.Leaf(t)
	return b.add(Node{
		Kind:        KindLeaf,
		Left:        NoNode,
		Right:       NoNode,
		Tensor:      canon,
		Layout:      Layout{Bra: canon.Bra, Ket: canon.Ket},
		Scalar:      1,
		Fingerprint: fp,
	})
}

func (b *builder) product(p *expr.Product) (NodeID, error) {
	scale := p.Scalar
	var ids []NodeID
	for _, f := range p.Factors {
		if c, ok := f.(expr.Constant); ok {
			scale *= c.Value
			continue
		}
		id, err := b.build(f)
		if err != nil {
			return NoNode, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return NoNode, errors.New(errors.ErrCodeMalformed, "product %s has no tensor factor", p)
	}
	if err := b.checkMultiplicity(ids); err != nil {
		return NoNode, err
	}
	root, err := b.folder.Fold(ids, b.combineProduct)
	if err != nil {
		return NoNode, err
	}
	b.nodes[root].Scalar *= scale
	return root, nil
}

// checkMultiplicity rejects labels occurring more than twice among the
// free indices of a product's factors.
func (b *builder) checkMultiplicity(ids []NodeID) error {
	count := make(map[string]int)
	for _, id := range ids {
		for _, idx := range b.nodes[id].Layout.Indices() {
			count[idx.Label]++
			if count[idx.Label] > 2 {
				return errors.New(errors.ErrCodeMalformed, "index %s occurs more than twice in a product", idx.Label)
			}
		}
	}
	return nil
}

func (b *builder) combineProduct(l, r NodeID) (NodeID, error) {
	left, right := &b.nodes[l], &b.nodes[r]
	lIdx, rIdx := left.Layout.Indices(), right.Layout.Indices()

	rPos := make(map[string]int, len(rIdx))
	for j, idx := range rIdx {
		rPos[idx.Label] = j
	}

	topo := fingerprint.ProductTopology{Contracted: [][2]int{}}
	lContracted := make([]bool, len(lIdx))
	rContracted := make([]bool, len(rIdx))
	for i, idx := range lIdx {
		j, ok := rPos[idx.Label]
		if !ok {
			continue
		}
		if rIdx[j].Space.Name != idx.Space.Name {
			return NoNode, errors.New(errors.ErrCodeMalformed,
				"index %s contracts %s with %s", idx.Label, idx.Space.Name, rIdx[j].Space.Name)
		}
		topo.Contracted = append(topo.Contracted, [2]int{i, j})
		lContracted[i], rContracted[j] = true, true
	}

	var out Layout
	lBra, rBra := len(left.Layout.Bra), len(right.Layout.Bra)
	// Output bra: free left bra then free right bra; ket likewise.
	for i := 0; i < lBra; i++ {
		if !lContracted[i] {
			out.Bra = append(out.Bra, lIdx[i])
			topo.Output = append(topo.Output, fingerprint.Slot{Operand: 0, Pos: i})
		}
	}
	for j := 0; j < rBra; j++ {
		if !rContracted[j] {
			out.Bra = append(out.Bra, rIdx[j])
			topo.Output = append(topo.Output, fingerprint.Slot{Operand: 1, Pos: j})
		}
	}
	topo.OutputBra = len(out.Bra)
	for i := lBra; i < len(lIdx); i++ {
		if !lContracted[i] {
			out.Ket = append(out.Ket, lIdx[i])
			topo.Output = append(topo.Output, fingerprint.Slot{Operand: 0, Pos: i})
		}
	}
	for j := rBra; j < len(rIdx); j++ {
		if !rContracted[j] {
			out.Ket = append(out.Ket, rIdx[j])
			topo.Output = append(topo.Output, fingerprint.Slot{Operand: 1, Pos: j})
		}
	}

	return b.add(Node{
		Kind:        KindProduct,
		Left:        l,
		Right:       r,
		Layout:      out,
		Scalar:      left.Scalar * right.Scalar,
		Fingerprint: b.hasher.Product(left.Fingerprint, right.Fingerprint, topo),
	}), nil
}

func (b *builder) sum(s *expr.Sum) (NodeID, error) {
	if len(s.Summands) == 0 {
		return NoNode, errors.New(errors.ErrCodeMalformed, "empty sum")
	}
	ids := make([]NodeID, 0, len(s.Summands))
	for _, e := range s.Summands {
		if c, ok := e.(expr.Constant); ok {
			return NoNode, errors.New(errors.ErrCodeMalformed, "constant %s cannot be added to a tensor", c)
		}
		id, err := b.build(e)
		if err != nil {
			return NoNode, err
		}
		ids = append(ids, id)
	}
	return b.folder.Fold(ids, b.combineSum)
}

func (b *builder) combineSum(l, r NodeID) (NodeID, error) {
	left, right := &b.nodes[l], &b.nodes[r]
	align, err := alignSum(left.Layout, right.Layout)
	if err != nil {
		return NoNode, err
	}

	scalar := complex128(1)
	weights := [2]complex128{0, right.Scalar}
	if left.Scalar != 0 {
		scalar = left.Scalar
		weights = [2]complex128{1, right.Scalar / left.Scalar}
	}

	topo := fingerprint.SumTopology{Align: align, Weights: weights}
	return b.add(Node{
		Kind:        KindSum,
		Left:        l,
		Right:       r,
		Layout:      left.Layout,
		Scalar:      scalar,
		Weights:     weights,
		Fingerprint: b.hasher.Sum(left.Fingerprint, right.Fingerprint, topo),
	}), nil
}

// alignSum maps every slot of the left layout to the right slot carrying the
// same label. Labels must keep their bra/ket role, or all of them must swap
// role (a full bra/ket transpose).
func alignSum(left, right Layout) ([]int, error) {
	if len(left.Bra) != len(right.Bra) || len(left.Ket) != len(right.Ket) {
		return nil, errors.New(errors.ErrCodeMalformed,
			"sum operands %s and %s differ in rank", left, right)
	}
	lIdx, rIdx := left.Indices(), right.Indices()
	rPos := make(map[string]int, len(rIdx))
	for j, idx := range rIdx {
		rPos[idx.Label] = j
	}

	nb := len(left.Bra)
	align := make([]int, len(lIdx))
	same, swapped := true, true
	for i, idx := range lIdx {
		j, ok := rPos[idx.Label]
		if !ok {
			return nil, errors.New(errors.ErrCodeMalformed,
				"sum operands %s and %s differ in free index %s", left, right, idx.Label)
		}
		if rIdx[j].Space.Name != idx.Space.Name {
			return nil, errors.New(errors.ErrCodeMalformed,
				"sum operands disagree on the space of %s", idx.Label)
		}
		inBra := i < nb
		rInBra := j < nb
		if inBra != rInBra {
			same = false
		} else {
			swapped = false
		}
		align[i] = j
	}
	if !same && !(swapped && nb == len(left.Ket)) {
		return nil, errors.New(errors.ErrCodeMalformed,
			"sum operands %s and %s assign incompatible bra/ket roles", left, right)
	}
	return align, nil
}
