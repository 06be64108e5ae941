package expr

import (
	"slices"
	"strings"

	"github.com/matzehuels/tensorplan/pkg/errors"
)

// Space is a typed index space.
//
// Two indices are compatible only if their spaces have the same Name. Extent
// is the number of values an index of this space ranges over; zero means
// unknown and disables shape checks for that space.
type Space struct {
	Name   string
	Extent int
}

// Index is a label bound to a space.
//
// Proto holds dependent (proto-) indices. Their spaces take part in
// structural fingerprints; their labels never do.
type Index struct {
	Label string
	Space Space
	Proto []Index
}

// String returns the index label, followed by its proto-indices in angle
// brackets if it has any.
func (i Index) String() string {
	if len(i.Proto) == 0 {
		return i.Label
	}
	parts := make([]string, len(i.Proto))
	for k, p := range i.Proto {
		parts[k] = p.Label
	}
	return i.Label + "<" + strings.Join(parts, ",") + ">"
}

// Labels returns the labels of indices in order.
func Labels(indices []Index) []string {
	out := make([]string, len(indices))
	for k, idx := range indices {
		out[k] = idx.Label
	}
	return out
}

// Convention maps label prefixes to index spaces.
//
// A Convention is a plain value passed explicitly to the components that
// need it. The zero value has no spaces; use [NewConvention] or
// [DefaultConvention].
type Convention struct {
	spaces   []Space
	prefixes map[string]int
}

// NewConvention returns an empty convention.
func NewConvention() *Convention {
	return &Convention{prefixes: make(map[string]int)}
}

// DefaultConvention returns the conventional two-space partitioning used by
// coupled-cluster style expressions: labels i, j, k, l, m, n denote occupied
// indices ("occ") and a, b, c, d, e, f denote virtual indices ("virt").
// Extents are left unset.
func DefaultConvention() *Convention {
	c := NewConvention()
	_ = c.AddSpace("occ", 0, "i", "j", "k", "l", "m", "n")
	_ = c.AddSpace("virt", 0, "a", "b", "c", "d", "e", "f")
	return c
}

// AddSpace registers a space and the label prefixes that select it.
// A prefix already bound to another space is an error.
func (c *Convention) AddSpace(name string, extent int, prefixes ...string) error {
	if err := errors.ValidateSpaceName(name); err != nil {
		return err
	}
	if extent < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "space %s: negative extent %d", name, extent)
	}
	if c.prefixes == nil {
		c.prefixes = make(map[string]int)
	}
	if _, ok := c.Space(name); ok {
		return errors.New(errors.ErrCodeInvalidConfig, "space %s already defined", name)
	}
	for _, p := range prefixes {
		if _, ok := c.prefixes[p]; ok {
			return errors.New(errors.ErrCodeInvalidConfig, "prefix %q bound twice", p)
		}
	}
	c.spaces = append(c.spaces, Space{Name: name, Extent: extent})
	for _, p := range prefixes {
		c.prefixes[p] = len(c.spaces) - 1
	}
	return nil
}

// SetExtent updates the extent of a registered space.
func (c *Convention) SetExtent(name string, extent int) error {
	if extent < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "space %s: negative extent %d", name, extent)
	}
	for k := range c.spaces {
		if c.spaces[k].Name == name {
			c.spaces[k].Extent = extent
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidConfig, "unknown space %s", name)
}

// Space returns the registered space with the given name.
func (c *Convention) Space(name string) (Space, bool) {
	for _, s := range c.spaces {
		if s.Name == name {
			return s, true
		}
	}
	return Space{}, false
}

// Spaces returns the registered spaces in registration order.
func (c *Convention) Spaces() []Space {
	return slices.Clone(c.spaces)
}

// Extent returns the current extent of idx's space under this convention.
// Spaces the convention does not know report the extent stored on the index.
func (c *Convention) Extent(idx Index) int {
	if s, ok := c.Space(idx.Space.Name); ok {
		return s.Extent
	}
	return idx.Space.Extent
}

// Index builds an index from a label such as "i_1", "a3" or "k".
// The prefix is the leading run of letters.
func (c *Convention) Index(label string) (Index, error) {
	if err := errors.ValidateLabel(label); err != nil {
		return Index{}, err
	}
	prefix := labelPrefix(label)
	k, ok := c.prefixes[prefix]
	if !ok {
		return Index{}, errors.New(errors.ErrCodeInvalidInput, "index %q: no space for prefix %q", label, prefix)
	}
	return Index{Label: label, Space: c.spaces[k]}, nil
}

// Indices builds indices for each label in order.
func (c *Convention) Indices(labels ...string) ([]Index, error) {
	out := make([]Index, len(labels))
	for k, l := range labels {
		idx, err := c.Index(l)
		if err != nil {
			return nil, err
		}
		out[k] = idx
	}
	return out, nil
}

// Tensor builds a tensor whose indices are resolved through the convention.
func (c *Convention) Tensor(label string, bra, ket []string, opts ...TensorOption) (*Tensor, error) {
	b, err := c.Indices(bra...)
	if err != nil {
		return nil, err
	}
	k, err := c.Indices(ket...)
	if err != nil {
		return nil, err
	}
	return NewTensor(label, b, k, opts...)
}

// MustTensor is like Tensor but panics on error. It is intended for tests
// and static tables.
func (c *Convention) MustTensor(label string, bra, ket []string, opts ...TensorOption) *Tensor {
	t, err := c.Tensor(label, bra, ket, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func labelPrefix(label string) string {
	end := len(label)
	for k, r := range label {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			end = k
			break
		}
	}
	return label[:end]
}
