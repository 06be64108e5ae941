package exprfile

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
)

// Document is a named set of equations.
type Document struct {
	Name      string            `yaml:"name,omitempty"`
	Leaves    map[string]string `yaml:"leaves,omitempty"`
	Equations []Equation        `yaml:"equations"`
}

// Equation is one expression to evaluate, with its requested output order
// and post-processing.
type Equation struct {
	Name   string   `yaml:"name"`
	Expr   Node     `yaml:"expr"`
	Bra    []string `yaml:"bra,omitempty"`
	Ket    []string `yaml:"ket,omitempty"`
	Post   string   `yaml:"post,omitempty"`
	Policy string   `yaml:"policy,omitempty"`
}

// Node is one expression node. Exactly one field is set.
type Node struct {
	Tensor   *TensorNode  `yaml:"tensor,omitempty"`
	Product  *ProductNode `yaml:"product,omitempty"`
	Sum      []Node       `yaml:"sum,omitempty"`
	Constant *Scalar      `yaml:"constant,omitempty"`
}

// TensorNode describes a tensor by its label and index labels. Index
// spaces are resolved through a convention.
type TensorNode struct {
	Label    string   `yaml:"label"`
	Bra      []string `yaml:"bra,flow"`
	Ket      []string `yaml:"ket,flow"`
	Symmetry string   `yaml:"symmetry,omitempty"`
	BraKet   string   `yaml:"braket,omitempty"`
}

// ProductNode is a scaled product. A missing scalar means 1.
type ProductNode struct {
	Scalar  *Scalar `yaml:"scalar,omitempty"`
	Factors []Node  `yaml:"factors"`
}

// Scalar is a complex number written as a plain number or as
// {re: x, im: y}.
type Scalar struct {
	Re float64 `yaml:"re"`
	Im float64 `yaml:"im,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Im = 0
		return n.Decode(&s.Re)
	}
	type plain Scalar
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = Scalar(p)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Scalar) MarshalYAML() (any, error) {
	if s.Im == 0 {
		return s.Re, nil
	}
	type plain Scalar
	return plain(s), nil
}

// Complex returns the scalar as a complex128.
func (s Scalar) Complex() complex128 { return complex(s.Re, s.Im) }

// Parse decodes a document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a document from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeInvalidExpression, "empty document")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "decode document")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads the document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "expression file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()
	doc, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "%s", path)
	}
	return doc, nil
}

// Encode returns the document as YAML.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode document")
	}
	return buf.Bytes(), nil
}

// Validate checks the document structure. It does not resolve index
// labels; that happens in [Node.Expr].
func (d *Document) Validate() error {
	if len(d.Equations) == 0 {
		return errors.New(errors.ErrCodeInvalidExpression, "document has no equations")
	}
	seen := make(map[string]bool, len(d.Equations))
	for i, eq := range d.Equations {
		if eq.Name == "" {
			return errors.New(errors.ErrCodeInvalidExpression, "equation %d has no name", i)
		}
		if seen[eq.Name] {
			return errors.New(errors.ErrCodeInvalidExpression, "equation %s defined twice", eq.Name)
		}
		seen[eq.Name] = true
		if err := eq.Expr.validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExpression, err, "equation %s", eq.Name)
		}
	}
	for label, path := range d.Leaves {
		if err := errors.ValidateLabel(label); err != nil {
			return err
		}
		if err := errors.ValidatePath(path); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExpression, err, "leaf %s", label)
		}
	}
	return nil
}

// Equation returns the equation with the given name.
func (d *Document) Equation(name string) (*Equation, bool) {
	for i := range d.Equations {
		if d.Equations[i].Name == name {
			return &d.Equations[i], true
		}
	}
	return nil, false
}

func (n *Node) validate() error {
	set := 0
	if n.Tensor != nil {
		set++
	}
	if n.Product != nil {
		set++
		if len(n.Product.Factors) == 0 {
			return errors.New(errors.ErrCodeInvalidExpression, "product without factors")
		}
		for i := range n.Product.Factors {
			if err := n.Product.Factors[i].validate(); err != nil {
				return err
			}
		}
	}
	if n.Sum != nil {
		set++
		if len(n.Sum) == 0 {
			return errors.New(errors.ErrCodeInvalidExpression, "sum without summands")
		}
		for i := range n.Sum {
			if err := n.Sum[i].validate(); err != nil {
				return err
			}
		}
	}
	if n.Constant != nil {
		set++
	}
	if set != 1 {
		return errors.New(errors.ErrCodeInvalidExpression, "node must set exactly one of tensor, product, sum or constant (got %d)", set)
	}
	return nil
}

// Expr builds the expression, resolving index labels through conv.
func (n *Node) Expr(conv *expr.Convention) (expr.Expr, error) {
	switch {
	case n.Tensor != nil:
		return n.Tensor.build(conv)
	case n.Product != nil:
		scalar := complex128(1)
		if n.Product.Scalar != nil {
			scalar = n.Product.Scalar.Complex()
		}
		factors := make([]expr.Expr, len(n.Product.Factors))
		for i := range n.Product.Factors {
			f, err := n.Product.Factors[i].Expr(conv)
			if err != nil {
				return nil, err
			}
			factors[i] = f
		}
		return expr.NewProduct(scalar, factors...), nil
	case n.Sum != nil:
		summands := make([]expr.Expr, len(n.Sum))
		for i := range n.Sum {
			s, err := n.Sum[i].Expr(conv)
			if err != nil {
				return nil, err
			}
			summands[i] = s
		}
		return expr.NewSum(summands...), nil
	case n.Constant != nil:
		return expr.Constant{Value: n.Constant.Complex()}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidExpression, "empty node")
}

func (t *TensorNode) build(conv *expr.Convention) (*expr.Tensor, error) {
	sym, err := expr.ParseSymmetry(t.Symmetry)
	if err != nil {
		return nil, err
	}
	bk, err := expr.ParseBraKet(t.BraKet)
	if err != nil {
		return nil, err
	}
	return conv.Tensor(t.Label, t.Bra, t.Ket, expr.WithSymmetry(sym), expr.WithBraKet(bk))
}

// FromExpr converts an expression back into its document form.
func FromExpr(e expr.Expr) (Node, error) {
	switch v := e.(type) {
	case *expr.Tensor:
		tn := &TensorNode{
			Label: v.Label,
			Bra:   expr.Labels(v.Bra),
			Ket:   expr.Labels(v.Ket),
		}
		if v.Symmetry != expr.Nonsymmetric {
			tn.Symmetry = v.Symmetry.String()
		}
		if v.BraKet != expr.BraKetDistinct {
			tn.BraKet = v.BraKet.String()
		}
		return Node{Tensor: tn}, nil
	case *expr.Product:
		p := &ProductNode{Factors: make([]Node, len(v.Factors))}
		if v.Scalar != 1 {
			p.Scalar = &Scalar{Re: real(v.Scalar), Im: imag(v.Scalar)}
		}
		for i, f := range v.Factors {
			n, err := FromExpr(f)
			if err != nil {
				return Node{}, err
			}
			p.Factors[i] = n
		}
		return Node{Product: p}, nil
	case *expr.Sum:
		sum := make([]Node, len(v.Summands))
		for i, s := range v.Summands {
			n, err := FromExpr(s)
			if err != nil {
				return Node{}, err
			}
			sum[i] = n
		}
		return Node{Sum: sum}, nil
	case expr.Constant:
		return Node{Constant: &Scalar{Re: real(v.Value), Im: imag(v.Value)}}, nil
	case nil:
		return Node{}, errors.New(errors.ErrCodeInvalidExpression, "nil expression")
	}
	return Node{}, errors.New(errors.ErrCodeInternal, "unknown expression kind %v", e.Kind())
}

// Build resolves the equation's expression through conv.
func (eq *Equation) Build(conv *expr.Convention) (expr.Expr, error) {
	e, err := eq.Expr.Expr(conv)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "equation %s", eq.Name)
	}
	return e, nil
}
