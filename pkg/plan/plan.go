package plan

import (
	"fmt"
	"strings"

	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// NodeID addresses a node within its plan's arena.
type NodeID int

// NoNode is the child ID of leaves.
const NoNode NodeID = -1

// Kind classifies plan nodes.
type Kind int

const (
	KindLeaf Kind = iota
	KindProduct
	KindSum
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindProduct:
		return "product"
	case KindSum:
		return "sum"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Layout is the ordered bra and ket index list a node's value is laid out
// in. Positions, not labels, define the data layout: nodes with equal
// fingerprints store their values in the same positional order.
type Layout struct {
	Bra []expr.Index
	Ket []expr.Index
}

// Indices returns the bra followed by the ket.
func (l Layout) Indices() []expr.Index {
	out := make([]expr.Index, 0, len(l.Bra)+len(l.Ket))
	out = append(out, l.Bra...)
	return append(out, l.Ket...)
}

// Labels returns the labels of Indices.
func (l Layout) Labels() []string {
	return expr.Labels(l.Indices())
}

// Rank returns the number of slots.
func (l Layout) Rank() int { return len(l.Bra) + len(l.Ket) }

// String formats the layout as "[i_1,i_2;a_1,a_2]".
func (l Layout) String() string {
	return "[" + strings.Join(expr.Labels(l.Bra), ",") + ";" + strings.Join(expr.Labels(l.Ket), ",") + "]"
}

// Node is one vertex of an evaluation plan.
//
// The value a node stores in the cache is unscaled: Scalar is the factor
// the parent (or, for the root, the caller) applies to it. Leaves yield
// tensor data as is; product nodes contract the unscaled operand values;
// sum nodes add the unscaled operand values with Weights.
type Node struct {
	ID          NodeID
	Kind        Kind
	Left        NodeID
	Right       NodeID
	Tensor      *expr.Tensor
	Layout      Layout
	Scalar      complex128
	Weights     [2]complex128
	Fingerprint fingerprint.Fingerprint
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.Kind == KindLeaf }

// Label returns a short description: the tensor for leaves, the operator
// symbol for internal nodes.
func (n *Node) Label() string {
	switch n.Kind {
	case KindLeaf:
		return n.Tensor.String()
	case KindProduct:
		return "*"
	case KindSum:
		return "+"
	}
	return "?"
}

// Plan is a binary evaluation tree stored as an arena of nodes.
//
// Children are always stored before their parents, so iterating the arena
// in order visits every node after its operands. A plan is immutable once
// built and may be evaluated concurrently.
type Plan struct {
	nodes  []Node
	root   NodeID
	config fingerprint.Config
}

// Root returns the ID of the root node.
func (p *Plan) Root() NodeID { return p.root }

// RootNode returns the root node.
func (p *Plan) RootNode() *Node { return &p.nodes[p.root] }

// Node returns the node with the given ID.
func (p *Plan) Node(id NodeID) *Node { return &p.nodes[id] }

// Len returns the number of nodes.
func (p *Plan) Len() int { return len(p.nodes) }

// Config returns the fingerprint configuration the plan was built with.
func (p *Plan) Config() fingerprint.Config { return p.config }

// Fingerprint returns the root fingerprint.
func (p *Plan) Fingerprint() fingerprint.Fingerprint { return p.nodes[p.root].Fingerprint }

// Layout returns the root layout.
func (p *Plan) Layout() Layout { return p.nodes[p.root].Layout }

// Scalar returns the overall scale applied to the root value.
func (p *Plan) Scalar() complex128 { return p.nodes[p.root].Scalar }

// Walk calls fn for every node, children before parents. Walk stops at the
// first error and returns it.
func (p *Plan) Walk(fn func(*Node) error) error {
	for i := range p.nodes {
		if err := fn(&p.nodes[i]); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns the leaf nodes in arena order.
func (p *Plan) Leaves() []*Node {
	var out []*Node
	for i := range p.nodes {
		if p.nodes[i].IsLeaf() {
			out = append(out, &p.nodes[i])
		}
	}
	return out
}

// Uses counts how often each fingerprint occurs in the plan.
func (p *Plan) Uses() map[fingerprint.Fingerprint]int {
	uses := make(map[fingerprint.Fingerprint]int, len(p.nodes))
	for i := range p.nodes {
		uses[p.nodes[i].Fingerprint]++
	}
	return uses
}

// Accesses counts the cache requests a memoizing evaluation of the plan
// makes per fingerprint. A node is requested each time its parent is
// computed, but the subtree below a repeated fingerprint is never visited
// again, so its occurrences there are not counted.
func (p *Plan) Accesses() map[fingerprint.Fingerprint]int {
	acc := make(map[fingerprint.Fingerprint]int, len(p.nodes))
	seen := make(map[fingerprint.Fingerprint]bool, len(p.nodes))
	stack := []NodeID{p.root}
	for len(stack) > 0 {
		n := &p.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		acc[n.Fingerprint]++
		if seen[n.Fingerprint] {
			continue
		}
		seen[n.Fingerprint] = true
		if !n.IsLeaf() {
			stack = append(stack, n.Right, n.Left)
		}
	}
	return acc
}

// String renders the plan as an indented tree, one node per line.
func (p *Plan) String() string {
	var b strings.Builder
	p.format(&b, p.root, 0)
	return b.String()
}

func (p *Plan) format(b *strings.Builder, id NodeID, depth int) {
	n := &p.nodes[id]
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Label())
	if !n.IsLeaf() {
		b.WriteString(" ")
		b.WriteString(n.Layout.String())
	}
	if n.Scalar != 1 {
		b.WriteString(" x")
		b.WriteString(expr.FormatScalar(n.Scalar))
	}
	b.WriteString(" #")
	b.WriteString(n.Fingerprint.Short())
	b.WriteByte('\n')
	if !n.IsLeaf() {
		p.format(b, n.Left, depth+1)
		p.format(b, n.Right, depth+1)
	}
}
