package eval

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/cache"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/leaf"
	"github.com/matzehuels/tensorplan/pkg/observability"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

type tensor = *dense.Tensor

func convention(t *testing.T, nocc, nvirt int) *expr.Convention {
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

func binarize(t *testing.T, e expr.Expr) *plan.Plan {
	t.Helper()
	p, err := plan.Binarize(e)
	if err != nil {
		t.Fatalf("Binarize(%s): %v", e, err)
	}
	return p
}

// counter wraps a yielder and counts requests per tensor label.
type counter struct {
	inner leaf.Yielder[tensor]
	mu    sync.Mutex
	calls map[string]int
}

func newCounter(inner leaf.Yielder[tensor]) *counter {
	return &counter{inner: inner, calls: make(map[string]int)}
}

func (c *counter) Yield(ctx context.Context, t *expr.Tensor) (tensor, error) {
	c.mu.Lock()
	c.calls[t.Label]++
	c.mu.Unlock()
	return c.inner.Yield(ctx, t)
}

func (c *counter) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// combineHooks counts combined nodes by kind.
type combineHooks struct {
	observability.NoopEvalHooks
	mu    sync.Mutex
	kinds map[string]int
	post  int
}

func (h *combineHooks) OnCombine(_ context.Context, kind string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.kinds == nil {
		h.kinds = make(map[string]int)
	}
	h.kinds[kind]++
}

func (h *combineHooks) OnPostProcess(_ context.Context, _ string, terms int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.post += terms
}

func data(t *testing.T, y leaf.Yielder[tensor], x *expr.Tensor) tensor {
	t.Helper()
	v, err := y.Yield(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

func TestEvaluateAtMostOnce(t *testing.T) {
	c := convention(t, 3, 4)
	g1 := c.MustTensor("g", []string{"i", "j"}, []string{"a", "b"})
	t1 := c.MustTensor("t", []string{"a", "b"}, []string{"i", "j"})
	g2 := c.MustTensor("g", []string{"k", "l"}, []string{"c", "d"})
	t2 := c.MustTensor("t", []string{"c", "d"}, []string{"k", "l"})
	e := expr.NewSum(expr.NewProduct(1, g1, t1), expr.NewProduct(1, g2, t2))
	p := binarize(t, e)

	y := newCounter(leaf.NewRandom(c, 1))
	hooks := &combineHooks{}
	ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), y, WithConvention(c), WithHooks(hooks))

	res, err := ev.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if y.calls["g"] != 1 || y.calls["t"] != 1 {
		t.Errorf("yields = %v, want each leaf once", y.calls)
	}
	if hooks.kinds["product"] != 1 || hooks.kinds["sum"] != 1 {
		t.Errorf("combines = %v, want one product and one sum", hooks.kinds)
	}

	g, tt := data(t, leaf.NewRandom(c, 1), g1), data(t, leaf.NewRandom(c, 1), t1)
	var want float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for a := 0; a < 4; a++ {
				for b := 0; b < 4; b++ {
					want += g.At(i, j, a, b) * tt.At(a, b, i, j)
				}
			}
		}
	}
	want *= 2
	if got := res.Value.Data()[0]; math.Abs(got-want) > 1e-10 {
		t.Errorf("value = %v, want %v", got, want)
	}
	if len(res.Labels()) != 0 {
		t.Errorf("labels = %v, want scalar", res.Labels())
	}

	// A second pass is served from the cache.
	if _, err := ev.Evaluate(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if y.total() != 2 || hooks.kinds["product"] != 1 {
		t.Errorf("second pass recomputed: yields=%v combines=%v", y.calls, hooks.kinds)
	}
}

func TestEvaluateAdditive(t *testing.T) {
	c := convention(t, 10, 20)
	g := c.MustTensor("g", []string{"i", "j"}, []string{"a", "b"})
	tt := c.MustTensor("t", []string{"a", "b"}, []string{"i", "j"})
	p := binarize(t, expr.NewSum(g, tt))

	y := leaf.NewRandom(c, 7)
	ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), y, WithConvention(c))
	res, err := ev.EvaluateAs(context.Background(), p, []string{"i", "j"}, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	gv, tv := data(t, y, g), data(t, y, tt)
	maxErr := 0.0
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			for a := 0; a < 20; a++ {
				for b := 0; b < 20; b++ {
					want := gv.At(i, j, a, b) + tv.At(a, b, i, j)
					maxErr = math.Max(maxErr, relErr(res.Value.At(i, j, a, b), want))
				}
			}
		}
	}
	if maxErr >= 1e-10 {
		t.Errorf("max relative error %g", maxErr)
	}
}

func TestEvaluateProduct(t *testing.T) {
	c := convention(t, 4, 5)
	g := c.MustTensor("g", []string{"i", "k"}, []string{"a", "b"})
	tt := c.MustTensor("t", []string{"a", "b"}, []string{"j", "k"})
	p := binarize(t, expr.NewProduct(0.5, g, tt))

	y := leaf.NewRandom(c, 3)
	ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), y, WithConvention(c))
	res, err := ev.Evaluate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if l := res.Labels(); len(l) != 2 || l[0] != "i" || l[1] != "j" {
		t.Fatalf("labels = %v, want [i j]", l)
	}

	gv, tv := data(t, y, g), data(t, y, tt)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var want float64
			for k := 0; k < 4; k++ {
				for a := 0; a < 5; a++ {
					for b := 0; b < 5; b++ {
						want += gv.At(i, k, a, b) * tv.At(a, b, j, k)
					}
				}
			}
			want *= 0.5
			if got := res.Value.At(i, j); math.Abs(got-want) > 1e-10 {
				t.Errorf("R[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestEvaluateAsReorders(t *testing.T) {
	c := convention(t, 2, 3)
	x := c.MustTensor("t", []string{"i", "j"}, []string{"a", "b"})
	p := binarize(t, x)
	y := leaf.NewRandom(c, 5)
	ev := New[tensor](dense.Backend{}, nil, y, WithConvention(c))

	res, err := ev.EvaluateAs(context.Background(), p, []string{"j", "i"}, []string{"b", "a"})
	if err != nil {
		t.Fatal(err)
	}
	v := data(t, y, x)
	if res.Value.At(1, 0, 2, 1) != v.At(0, 1, 1, 2) {
		t.Error("EvaluateAs did not transpose")
	}

	if _, err := ev.EvaluateAs(context.Background(), p, []string{"i"}, []string{"a"}); !errors.Is(err, errors.ErrCodeShapeMismatch) {
		t.Errorf("partial order error = %v", err)
	}

	def, err := ev.EvaluateAs(context.Background(), p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !def.Value.EqualApprox(v, 0) {
		t.Error("default order of a sorted layout should be the identity")
	}
}

func TestEvaluateErrors(t *testing.T) {
	c := convention(t, 2, 3)
	g := c.MustTensor("g", []string{"i"}, []string{"a"})
	h := c.MustTensor("h", []string{"a"}, []string{"i"})
	ctx := context.Background()

	t.Run("missing leaf", func(t *testing.T) {
		reg := leaf.NewRegistry[tensor]()
		reg.PutTensor(g, dense.New(2, 3))
		ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), reg, WithConvention(c))
		_, err := ev.Evaluate(ctx, binarize(t, expr.NewProduct(1, g, h)))
		if !errors.Is(err, errors.ErrCodeMissingLeaf) {
			t.Errorf("error = %v, want MISSING_LEAF", err)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		reg := leaf.NewRegistry[tensor]()
		reg.PutTensor(g, dense.New(3, 3))
		ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), reg, WithConvention(c))
		_, err := ev.Evaluate(ctx, binarize(t, g))
		if !errors.Is(err, errors.ErrCodeShapeMismatch) {
			t.Errorf("error = %v, want SHAPE_MISMATCH", err)
		}
	})

	t.Run("rank mismatch", func(t *testing.T) {
		reg := leaf.NewRegistry[tensor]()
		reg.PutTensor(g, dense.New(2))
		ev := New[tensor](dense.Backend{}, nil, reg, WithConvention(c))
		_, err := ev.Evaluate(ctx, binarize(t, g))
		if !errors.Is(err, errors.ErrCodeShapeMismatch) {
			t.Errorf("error = %v, want SHAPE_MISMATCH", err)
		}
	})

	t.Run("complex scalar", func(t *testing.T) {
		y := newCounter(leaf.NewRandom(c, 1))
		ev := New[tensor](dense.Backend{}, cache.NewManager[tensor](), y, WithConvention(c))
		_, err := ev.Evaluate(ctx, binarize(t, expr.NewProduct(complex(0, 1), g, h)))
		if !errors.Is(err, errors.ErrCodeNarrowing) {
			t.Errorf("error = %v, want COMPLEX_NARROWING", err)
		}
		if y.total() != 0 {
			t.Error("narrowing must be detected before any leaf is fetched")
		}
	})

	t.Run("complex weight", func(t *testing.T) {
		g2 := c.MustTensor("g", []string{"j"}, []string{"b"})
		sum := expr.NewSum(
			expr.NewProduct(1, g, c.MustTensor("f", []string{"j"}, []string{"b"})),
			expr.NewProduct(complex(0, 2), g2, c.MustTensor("f", []string{"i"}, []string{"a"})))
		ev := New[tensor](dense.Backend{}, nil, leaf.NewRandom(c, 1), WithConvention(c))
		_, err := ev.Evaluate(ctx, binarize(t, sum))
		if !errors.Is(err, errors.ErrCodeNarrowing) {
			t.Errorf("error = %v, want COMPLEX_NARROWING", err)
		}
	})
}

func TestEvaluateAbandonsClaims(t *testing.T) {
	c := convention(t, 2, 3)
	g := c.MustTensor("g", []string{"i"}, []string{"a"})
	h := c.MustTensor("h", []string{"a"}, []string{"i"})
	p := binarize(t, expr.NewProduct(1, g, h))

	reg := leaf.NewRegistry[tensor]()
	reg.PutTensor(g, dense.New(2, 3))
	shared := cache.NewShared[tensor]()
	ev := New[tensor](dense.Backend{}, shared, reg, WithConvention(c))
	if _, err := ev.Evaluate(context.Background(), p); err == nil {
		t.Fatal("expected missing leaf")
	}

	reg.PutTensor(h, dense.New(3, 2))
	shared.ResetAll()
	done := make(chan error, 1)
	go func() {
		_, err := ev.Evaluate(context.Background(), p)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry blocked on a claim left by the failed evaluation")
	}
}

func TestCacheLifecycle(t *testing.T) {
	c := convention(t, 2, 3)
	g := c.MustTensor("g", []string{"i", "j"}, []string{"a", "b"})
	tt := c.MustTensor("t", []string{"a", "b"}, []string{"k", "l"})
	p := binarize(t, expr.NewProduct(1, g, tt))

	y := newCounter(leaf.NewRandom(c, 2))
	m := cache.NewManager[tensor]()
	ev := New[tensor](dense.Backend{}, m, y, WithConvention(c))
	ctx := context.Background()

	first, err := ev.Evaluate(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 3 {
		t.Errorf("cache holds %d entries, want 3", m.Len())
	}

	if dropped := m.ResetDecaying(); dropped != 1 {
		t.Errorf("ResetDecaying dropped %d, want 1", dropped)
	}
	second, err := ev.Evaluate(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if y.total() != 2 {
		t.Errorf("leaves refetched after ResetDecaying: %v", y.calls)
	}
	if !first.Value.EqualApprox(second.Value, 1e-14) {
		t.Error("results differ across passes")
	}

	m.ResetAll()
	if _, err := ev.Evaluate(ctx, p); err != nil {
		t.Fatal(err)
	}
	if y.total() != 4 {
		t.Errorf("leaves not refetched after ResetAll: %v", y.calls)
	}
}

func TestUseBudgets(t *testing.T) {
	c := convention(t, 2, 3)
	x := func(o, v string) *expr.Tensor { return c.MustTensor("x", []string{o}, []string{v}) }
	// The two products share a fingerprint.
	sum := expr.NewSum(
		expr.NewProduct(1, x("i", "a"), x("j", "b")),
		expr.NewProduct(1, x("i", "a"), x("j", "b")))
	p := binarize(t, sum)

	m := cache.NewManager[tensor]()
	ev := New[tensor](dense.Backend{}, m, leaf.NewRandom(c, 4), WithConvention(c), WithUseBudgets())
	if _, err := ev.Evaluate(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if st := m.Stats(); st.Released != 2 {
		t.Errorf("Released = %d, want product and root released", st.Released)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want only the persistent leaf", m.Len())
	}
}

func TestUseBudgetsNestedShared(t *testing.T) {
	c := convention(t, 2, 3)
	chain := func(d1, d2 string) *expr.Product {
		return expr.NewProduct(1,
			c.MustTensor("x", []string{"i"}, []string{d1}),
			c.MustTensor("y", []string{d1}, []string{d2}),
			c.MustTensor("z", []string{d2}, []string{"a"}))
	}
	// The second chain hits the cache at its outer product, so its inner
	// product and leaves are never requested.
	p := binarize(t, expr.NewSum(chain("b", "c"), chain("d", "e")))

	m := cache.NewManager[tensor]()
	ev := New[tensor](dense.Backend{}, m, leaf.NewRandom(c, 4), WithConvention(c), WithUseBudgets())
	if _, err := ev.Evaluate(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if st := m.Stats(); st.Released != 3 {
		t.Errorf("Released = %d, want inner product, outer product and root", st.Released)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want the three persistent leaves", m.Len())
	}
}
