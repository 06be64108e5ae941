package factorize_test

import (
	"fmt"

	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/factorize"
)

func ExampleLargestCommonSubnet() {
	c := expr.DefaultConvention()
	a := []expr.Expr{
		c.MustTensor("t", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}),
		c.MustTensor("g", []string{"i_1", "i_3"}, []string{"a_1", "a_3"}),
		c.MustTensor("f", []string{"i_2"}, []string{"a_2"}),
	}
	b := []expr.Expr{
		c.MustTensor("f", []string{"i_8"}, []string{"a_8"}),
		c.MustTensor("g", []string{"i_4", "i_8"}, []string{"a_4", "a_8"}),
		c.MustTensor("t", []string{"i_4", "i_6"}, []string{"a_4", "a_6"}),
	}
	posA, posB, err := factorize.LargestCommonSubnet(a, b)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(posA, posB)
	// Output: [0 1] [2 1]
}

func ExampleFactor() {
	c := expr.DefaultConvention()
	a := expr.NewProduct(0.5,
		c.MustTensor("t", []string{"i_1", "i_2"}, []string{"a_1", "a_2"}),
		c.MustTensor("g", []string{"i_1", "i_3"}, []string{"a_1", "a_3"}),
		c.MustTensor("f", []string{"i_2"}, []string{"a_2"}),
	)
	b := expr.NewProduct(1,
		c.MustTensor("t", []string{"i_4", "i_6"}, []string{"a_4", "a_6"}),
		c.MustTensor("f", []string{"i_8"}, []string{"a_8"}),
		c.MustTensor("g", []string{"i_4", "i_8"}, []string{"a_4", "a_8"}),
	)
	fa, fb, shared, err := factorize.Factor(a, b)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("shared:", shared)
	fmt.Println("a:", len(fa.Factors), "factors, rest", fa.Factors[1])
	fmt.Println("b:", len(fb.Factors), "factors, rest", fb.Factors[1])
	// Output:
	// shared: t{i_1,i_2;a_1,a_2} * g{i_1,i_3;a_1,a_3}
	// a: 2 factors, rest f{i_2;a_2}
	// b: 2 factors, rest f{i_8;a_8}
}
