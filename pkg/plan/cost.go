package plan

import (
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Cost summarizes the arithmetic work of a plan.
type Cost struct {
	// Total is the operation count if every node were evaluated.
	Total float64
	// Unique counts each fingerprint once, which is what a warm cache pays.
	Unique float64
	// Nodes and UniqueNodes count plan nodes and distinct fingerprints.
	Nodes       int
	UniqueNodes int
}

// Savings returns the fraction of Total avoided by fingerprint sharing.
func (c Cost) Savings() float64 {
	if c.Total == 0 {
		return 0
	}
	return 1 - c.Unique/c.Total
}

// NodeCost estimates the operation count of a single node: the product of
// the extents of every distinct index involved in a product (contracted
// indices counted once). Sums and leaves cost nothing; only contractions
// are counted. Spaces with an unknown extent count as 1.
func (p *Plan) NodeCost(id NodeID, conv *expr.Convention) float64 {
	n := &p.nodes[id]
	if n.Kind != KindProduct {
		return 0
	}
	seen := make(map[string]bool)
	ops := 1.0
	for _, side := range []NodeID{n.Left, n.Right} {
		for _, idx := range p.nodes[side].Layout.Indices() {
			if seen[idx.Label] {
				continue
			}
			seen[idx.Label] = true
			ops *= extent(conv, idx)
		}
	}
	return ops
}

// Cost estimates the work of evaluating the plan under conv's extents.
func (p *Plan) Cost(conv *expr.Convention) Cost {
	var c Cost
	seen := make(map[fingerprint.Fingerprint]bool, len(p.nodes))
	for i := range p.nodes {
		ops := p.NodeCost(NodeID(i), conv)
		c.Total += ops
		c.Nodes++
		if fp := p.nodes[i].Fingerprint; !seen[fp] {
			seen[fp] = true
			c.Unique += ops
			c.UniqueNodes++
		}
	}
	return c
}

// SharedCost estimates the work of evaluating several plans against one
// cache: fingerprints shared between plans are paid once.
func SharedCost(conv *expr.Convention, plans ...*Plan) Cost {
	var c Cost
	seen := make(map[fingerprint.Fingerprint]bool)
	for _, p := range plans {
		for i := range p.nodes {
			ops := p.NodeCost(NodeID(i), conv)
			c.Total += ops
			c.Nodes++
			if fp := p.nodes[i].Fingerprint; !seen[fp] {
				seen[fp] = true
				c.Unique += ops
				c.UniqueNodes++
			}
		}
	}
	return c
}

func extent(conv *expr.Convention, idx expr.Index) float64 {
	e := idx.Space.Extent
	if conv != nil {
		e = conv.Extent(idx)
	}
	if e <= 0 {
		return 1
	}
	return float64(e)
}
