package factorize

import (
	"cmp"
	"slices"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
)

// Option configures network construction.
type Option func(*options)

type options struct {
	cfg fingerprint.Config
}

// WithConfig sets the fingerprint configuration used to label factors and
// summands. The default is real mode.
func WithConfig(cfg fingerprint.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Bond is one dummy index joining two factors. From and To are slot
// positions (bra then ket) in the canonical orientation of the two factors.
type Bond struct {
	From int
	To   int
}

// Network is the contraction graph of a flat factor list.
type Network struct {
	positions []int
	labels    []fingerprint.Fingerprint
	tensors   []*expr.Tensor
	bonds     []map[int][]Bond
}

// NewNetwork builds the network of factors. Constants carry no structure
// and are skipped; every other factor must be a tensor.
//
// NewNetwork fails with MALFORMED_COMBINATION when an index label occurs in
// more than two factors, and with UNSUPPORTED for nested sums or products.
func NewNetwork(factors []expr.Expr, opts ...Option) (*Network, error) {
	o := newOptions(opts)
	h := fingerprint.New(o.cfg)

	n := &Network{}
	for pos, f := range factors {
		switch v := f.(type) {
		case expr.Constant:
			continue
		case *expr.Tensor:
			canon, fp := h.Leaf(v)
			n.positions = append(n.positions, pos)
			n.labels = append(n.labels, fp)
			n.tensors = append(n.tensors, canon)
			n.bonds = append(n.bonds, make(map[int][]Bond))
		case nil:
			return nil, errors.New(errors.ErrCodeInvalidExpression, "factor %d is nil", pos)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "factor %d is a %s, not a tensor", pos, f.Kind())
		}
	}

	type site struct{ node, slot int }
	seen := make(map[string][]site)
	for u, t := range n.tensors {
		for slot, idx := range t.Indices() {
			seen[idx.Label] = append(seen[idx.Label], site{u, slot})
		}
	}
	for label, sites := range seen {
		switch {
		case len(sites) > 2:
			return nil, errors.New(errors.ErrCodeMalformed, "index %s occurs in %d factors", label, len(sites))
		case len(sites) == 2:
			p, q := sites[0], sites[1]
			n.bonds[p.node][q.node] = append(n.bonds[p.node][q.node], Bond{p.slot, q.slot})
			n.bonds[q.node][p.node] = append(n.bonds[q.node][p.node], Bond{q.slot, p.slot})
		}
	}
	for _, adj := range n.bonds {
		for v := range adj {
			slices.SortFunc(adj[v], compareBonds)
		}
	}
	return n, nil
}

func compareBonds(a, b Bond) int {
	if c := cmp.Compare(a.From, b.From); c != 0 {
		return c
	}
	return cmp.Compare(a.To, b.To)
}

// Len returns the number of tensor factors.
func (n *Network) Len() int { return len(n.tensors) }

// Position returns the index in the original factor list of vertex u.
func (n *Network) Position(u int) int { return n.positions[u] }

// Tensor returns vertex u in canonical orientation.
func (n *Network) Tensor(u int) *expr.Tensor { return n.tensors[u] }

// Label returns the leaf fingerprint of vertex u.
func (n *Network) Label(u int) fingerprint.Fingerprint { return n.labels[u] }

// Bonds returns the bonds from u to v, sorted. The result is empty when the
// two factors share no index.
func (n *Network) Bonds(u, v int) []Bond { return n.bonds[u][v] }

// Degree returns the number of distinct factors u shares an index with.
func (n *Network) Degree(u int) int { return len(n.bonds[u]) }
