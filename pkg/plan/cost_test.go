package plan

import (
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/tensorplan/pkg/expr"
)

func sizedConvention(t *testing.T, nocc, nvirt int) *expr.Convention {
	t.Helper()
	c := expr.DefaultConvention()
	if err := c.SetExtent("occ", nocc); err != nil {
		t.Fatal(err)
	}
	if err := c.SetExtent("virt", nvirt); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNodeCost(t *testing.T) {
	sized := sizedConvention(t, 10, 20)
	e := expr.NewProduct(1,
		tn("t", []string{"i_1"}, []string{"a_1"}),
		tn("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))
	p := mustBinarize(t, e)

	if got := p.NodeCost(p.Root(), sized); got != 10*20*10*20 {
		t.Errorf("product cost = %v, want %v", got, 10*20*10*20)
	}
	if got := p.NodeCost(p.RootNode().Left, sized); got != 0 {
		t.Errorf("leaf cost = %v, want 0", got)
	}

	s := mustBinarize(t, expr.NewSum(
		tn("t", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}),
		tn("g", []string{"i_1", "i_2"}, []string{"a_2", "a_1"})))
	if got := s.NodeCost(s.Root(), sized); got != 0 {
		t.Errorf("sum cost = %v, want 0", got)
	}

	if got := p.NodeCost(p.Root(), expr.DefaultConvention()); got != 1 {
		t.Errorf("cost with unknown extents = %v, want 1", got)
	}
}

func TestCostOperationCounts(t *testing.T) {
	const nocc, nvirt = 10, 20
	sized := sizedConvention(t, nocc, nvirt)
	tests := []struct {
		name string
		e    expr.Expr
	}{
		{"product", expr.NewProduct(1,
			tn("t", []string{"i_1"}, []string{"a_1"}),
			tn("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))},
		{"sum", expr.NewSum(
			expr.NewProduct(1,
				tn("t", []string{"i_1"}, []string{"a_1"}),
				tn("f", []string{"i_2"}, []string{"a_2"})),
			tn("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustBinarize(t, tt.e).Cost(sized).Total; got != nocc*nocc*nvirt*nvirt {
				t.Errorf("Cost().Total = %v, want %v", got, nocc*nocc*nvirt*nvirt)
			}
		})
	}
}

func TestCostSharing(t *testing.T) {
	sized := sizedConvention(t, 4, 8)
	x := expr.NewProduct(1,
		tn("t", []string{"i_1"}, []string{"a_1"}),
		tn("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))
	y := expr.NewProduct(1,
		tn("t", []string{"i_3"}, []string{"a_3"}),
		tn("g", []string{"i_3", "i_2"}, []string{"a_3", "a_2"}))
	p := mustBinarize(t, expr.NewSum(x, y))

	c := p.Cost(sized)
	prod := 4.0 * 8 * 4 * 8
	if c.Total != 2*prod {
		t.Errorf("Total = %v, want %v", c.Total, 2*prod)
	}
	if c.Unique != prod {
		t.Errorf("Unique = %v, want %v", c.Unique, prod)
	}
	if c.Nodes != 7 || c.UniqueNodes != 4 {
		t.Errorf("Nodes=%d UniqueNodes=%d, want 7 and 4", c.Nodes, c.UniqueNodes)
	}
	if want := 0.5; math.Abs(c.Savings()-want) > 1e-12 {
		t.Errorf("Savings() = %v, want %v", c.Savings(), want)
	}

	px, py := mustBinarize(t, x), mustBinarize(t, y)
	shared := SharedCost(sized, px, py)
	if shared.Unique != prod || shared.Total != 2*prod {
		t.Errorf("SharedCost = %+v", shared)
	}
}

func TestToDOT(t *testing.T) {
	e := expr.NewProduct(1,
		tn("t", []string{"i_1"}, []string{"a_1"}),
		tn("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}))
	dot := mustBinarize(t, e).ToDOT("r1")

	for _, want := range []string{
		"digraph \"r1\" {",
		"n0 [label=\"* [i_2;a_2]\"",
		"n1 [label=\"t{i_1;a_1}\"",
		"n2 [label=\"g{i_1,i_2;a_1,a_2}\"",
		"n0 -> n1;",
		"n0 -> n2;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}
