package plan

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT returns a Graphviz DOT digraph of the plan.
//
// Nodes are numbered in pre-order from the root and edges point from a
// parent to its operands, left first. Leaves show their tensor, internal
// nodes their operator and layout; every node carries its short
// fingerprint as a tooltip.
//
// Example:
//
//	p, _ := plan.Binarize(e)
//	dot := p.ToDOT("energy")
//	// Use 'dot' command or RenderSVG to visualize
func (p *Plan) ToDOT(name string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"SF Mono, Menlo, monospace\", fontsize=14, style=filled, fillcolor=white];\n\n")

	p.writeDOTNode(&buf, p.root, 0)

	buf.WriteString("}\n")
	return buf.String()
}

func (p *Plan) writeDOTNode(buf *bytes.Buffer, id NodeID, num int) int {
	n := &p.nodes[id]
	nodeID := fmt.Sprintf("n%d", num)
	next := num + 1

	switch n.Kind {
	case KindLeaf:
		fmt.Fprintf(buf, "  %s [label=%q, tooltip=%q, shape=box, style=\"filled,rounded\"];\n",
			nodeID, n.Tensor.String(), n.Fingerprint.Short())
	default:
		fmt.Fprintf(buf, "  %s [label=%q, tooltip=%q, shape=ellipse];\n",
			nodeID, n.Label()+" "+n.Layout.String(), n.Fingerprint.Short())
		for _, child := range []NodeID{n.Left, n.Right} {
			fmt.Fprintf(buf, "  %s -> n%d;\n", nodeID, next)
			next = p.writeDOTNode(buf, child, next)
		}
	}
	return next
}

// RenderSVG renders the plan as an SVG image.
//
// RenderSVG generates a DOT representation via ToDOT, then uses Graphviz to
// render it to SVG format. Errors are returned if Graphviz cannot
// initialize, the DOT is malformed, or rendering fails.
func (p *Plan) RenderSVG(ctx context.Context, name string) ([]byte, error) {
	dot := p.ToDOT(name)

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
