package eval

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/tensorplan/pkg/backend"
	"github.com/matzehuels/tensorplan/pkg/cache"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
	"github.com/matzehuels/tensorplan/pkg/leaf"
	"github.com/matzehuels/tensorplan/pkg/observability"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

var tracer = otel.Tracer("tensorplan.eval")

// Option configures an Evaluator.
type Option func(*options)

type options struct {
	conv    *expr.Convention
	logger  *log.Logger
	hooks   observability.EvalHooks
	budgets bool
	workers int
}

// WithConvention sets the convention whose extents leaf shapes are checked
// against. Spaces without an extent are not checked.
func WithConvention(c *expr.Convention) Option {
	return func(o *options) {
		if c != nil {
			o.conv = c
		}
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHooks overrides the globally registered evaluator hooks.
func WithHooks(h observability.EvalHooks) Option {
	return func(o *options) { o.hooks = h }
}

// WithUseBudgets declares each plan's fingerprint use counts to the cache
// before evaluating it, so intermediates are released after their last use
// within the plan. Intermediates are then not available to later plans.
func WithUseBudgets() Option {
	return func(o *options) { o.budgets = true }
}

// WithConcurrency bounds the number of plans EvaluateAll evaluates at once.
// Zero or negative means no limit.
func WithConcurrency(n int) Option {
	return func(o *options) { o.workers = n }
}

// Evaluator executes plans against a backend, memoizing every node in a
// cache.
//
// An Evaluator is as safe for concurrent use as its cache: with a
// [cache.Shared] several goroutines may evaluate plans at once.
type Evaluator[T any] struct {
	backend backend.Backend[T]
	cache   cache.Cache[T]
	yielder leaf.Yielder[T]
	opts    options
}

// New creates an evaluator. A nil cache disables memoization.
func New[T any](b backend.Backend[T], c cache.Cache[T], y leaf.Yielder[T], opts ...Option) *Evaluator[T] {
	o := options{conv: expr.DefaultConvention(), logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if c == nil {
		c = cache.NewNull[T]()
	}
	return &Evaluator[T]{backend: b, cache: c, yielder: y, opts: o}
}

// Cache returns the evaluator's cache.
func (e *Evaluator[T]) Cache() cache.Cache[T] { return e.cache }

// Backend returns the evaluator's backend.
func (e *Evaluator[T]) Backend() backend.Backend[T] { return e.backend }

func (e *Evaluator[T]) hooks() observability.EvalHooks {
	if e.opts.hooks != nil {
		return e.opts.hooks
	}
	return observability.Eval()
}

// Result is an evaluated tensor with the labels of its modes: Bra labels
// the leading modes, Ket the trailing ones.
type Result[T any] struct {
	Value T
	Bra   []string
	Ket   []string
	RunID string
}

// Labels returns Bra followed by Ket.
func (r Result[T]) Labels() []string {
	return append(slices.Clone(r.Bra), r.Ket...)
}

// Evaluate computes the value of p: root scalar times root value, laid out
// in the root's bra and ket order.
//
// Every node is looked up in the cache before it is computed, and every
// computed node is stored: leaves as persistent entries, intermediates as
// decaying ones. A leaf whose shape disagrees with the convention's extents
// fails with SHAPE_MISMATCH; a scalar or sum weight with a non-zero
// imaginary part fails with COMPLEX_NARROWING before any work is done.
//
// On error the cache may hold a partial set of intermediates; call
// ResetAll on it before retrying.
func (e *Evaluator[T]) Evaluate(ctx context.Context, p *plan.Plan) (Result[T], error) {
	return e.evaluate(ctx, p, uuid.NewString())
}

func (e *Evaluator[T]) evaluate(ctx context.Context, p *plan.Plan, runID string) (res Result[T], err error) {
	ctx, span := tracer.Start(ctx, "eval.Evaluate",
		trace.WithAttributes(
			attribute.String("eval.run_id", runID),
			attribute.Int("plan.nodes", p.Len()),
			attribute.String("plan.fingerprint", p.Fingerprint().Short()),
		))
	defer span.End()

	hooks := e.hooks()
	start := time.Now()
	hooks.OnEvaluateStart(ctx, runID, p.Len())
	defer func() {
		hooks.OnEvaluateComplete(ctx, runID, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetStatus(codes.Ok, "")
	}()

	scale, err := checkReal(p)
	if err != nil {
		return res, err
	}
	if e.opts.budgets {
		if b, ok := e.cache.(cache.Budgeter); ok {
			for fp, n := range p.Accesses() {
				b.ExpectUses(fp, n)
			}
		}
	}

	v, err := e.walk(ctx, p)
	if err != nil {
		return res, err
	}
	root := p.RootNode()
	res = Result[T]{
		Value: e.backend.Scale(scale, v),
		Bra:   expr.Labels(root.Layout.Bra),
		Ket:   expr.Labels(root.Layout.Ket),
		RunID: runID,
	}
	e.opts.logger.Debug("evaluated plan",
		"run", runID,
		"nodes", p.Len(),
		"fingerprint", p.Fingerprint().Short(),
		"duration", time.Since(start))
	return res, nil
}

// checkReal returns the real root scalar, failing if it or any sum weight
// has an imaginary part.
func checkReal(p *plan.Plan) (float64, error) {
	err := p.Walk(func(n *plan.Node) error {
		if n.Kind != plan.KindSum {
			return nil
		}
		for _, w := range n.Weights {
			if imag(w) != 0 {
				return errors.New(errors.ErrCodeNarrowing, "sum weight %s at node %d is not real", expr.FormatScalar(w), n.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s := p.Scalar()
	if imag(s) != 0 {
		return 0, errors.New(errors.ErrCodeNarrowing, "plan scalar %s is not real", expr.FormatScalar(s))
	}
	return real(s), nil
}

type frame struct {
	id       plan.NodeID
	expanded bool
}

// walk evaluates p's root with an explicit post-order stack. A node's
// operands are fully evaluated and stored before its sibling is visited, so
// a goroutine never waits on a key it claimed itself.
func (e *Evaluator[T]) walk(ctx context.Context, p *plan.Plan) (T, error) {
	var zero T
	values := make([]T, p.Len())
	claims := make(map[fingerprint.Fingerprint]struct{})
	fail := func(err error) (T, error) {
		if c, ok := e.cache.(cache.Claimer); ok {
			for fp := range claims {
				c.Abandon(fp)
			}
		}
		return zero, err
	}
	cacheHooks := observability.Cache()

	stack := []frame{{id: p.Root()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := p.Node(f.id)
		kind := n.Kind.String()

		if !f.expanded {
			if v, ok := e.cache.Access(n.Fingerprint); ok {
				cacheHooks.OnCacheHit(ctx, kind)
				values[f.id] = v
				continue
			}
			cacheHooks.OnCacheMiss(ctx, kind)
			claims[n.Fingerprint] = struct{}{}
			if !n.IsLeaf() {
				stack = append(stack,
					frame{id: f.id, expanded: true},
					frame{id: n.Right},
					frame{id: n.Left})
				continue
			}
		}

		var (
			v    T
			err  error
			life = cache.Decaying
		)
		if n.IsLeaf() {
			v, err = e.yield(ctx, n)
			life = cache.Persistent
		} else {
			v, err = e.combine(ctx, p, n, values)
			values[n.Left], values[n.Right] = zero, zero
		}
		if err != nil {
			return fail(err)
		}
		v, err = e.cache.Store(n.Fingerprint, v, life)
		delete(claims, n.Fingerprint)
		if err != nil {
			return fail(err)
		}
		cacheHooks.OnCacheStore(ctx, kind, life.String())
		values[f.id] = v
	}
	return values[p.Root()], nil
}

func (e *Evaluator[T]) yield(ctx context.Context, n *plan.Node) (T, error) {
	start := time.Now()
	v, err := e.yielder.Yield(ctx, n.Tensor)
	e.hooks().OnLeafYield(ctx, n.Tensor.Label, time.Since(start), err)
	if err != nil {
		return v, err
	}
	if err := e.checkShape(n.Tensor, e.backend.Shape(v)); err != nil {
		var zero T
		return zero, err
	}
	e.opts.logger.Debug("yielded leaf", "tensor", n.Tensor, "fingerprint", n.Fingerprint.Short())
	return v, nil
}

func (e *Evaluator[T]) checkShape(t *expr.Tensor, shape []int) error {
	indices := t.Indices()
	if len(shape) != len(indices) {
		return errors.New(errors.ErrCodeShapeMismatch, "leaf %s: yielded rank %d, want %d", t, len(shape), len(indices))
	}
	for k, idx := range indices {
		if want := e.opts.conv.Extent(idx); want > 0 && shape[k] != want {
			return errors.New(errors.ErrCodeShapeMismatch, "leaf %s: slot %d (%s) has extent %d, want %d", t, k, idx.Space.Name, shape[k], want)
		}
	}
	return nil
}

func (e *Evaluator[T]) combine(ctx context.Context, p *plan.Plan, n *plan.Node, values []T) (T, error) {
	start := time.Now()
	defer func() { e.hooks().OnCombine(ctx, n.Kind.String(), time.Since(start)) }()

	l, r := p.Node(n.Left), p.Node(n.Right)
	lv, rv := values[n.Left], values[n.Right]
	out := n.Layout.Labels()
	switch n.Kind {
	case plan.KindProduct:
		return e.backend.Contract(1, lv, l.Layout.Labels(), rv, r.Layout.Labels(), out)
	case plan.KindSum:
		v, err := e.backend.Permute(real(n.Weights[0]), lv, l.Layout.Labels(), out)
		if err != nil {
			return v, err
		}
		if err := e.backend.AddPermuted(v, out, real(n.Weights[1]), rv, r.Layout.Labels()); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	}
	var zero T
	return zero, errors.New(errors.ErrCodeInternal, "cannot combine %s node %d", n.Kind, n.ID)
}

// DefaultOrder returns the root bra and ket labels of p, each sorted.
func DefaultOrder(p *plan.Plan) (bra, ket []string) {
	l := p.Layout()
	bra, ket = expr.Labels(l.Bra), expr.Labels(l.Ket)
	slices.Sort(bra)
	slices.Sort(ket)
	return bra, ket
}

// EvaluateAs evaluates p and re-annotates the result to the given bra and
// ket label order. bra followed by ket must be a permutation of the root
// labels. With both nil the order of [DefaultOrder] is used.
func (e *Evaluator[T]) EvaluateAs(ctx context.Context, p *plan.Plan, bra, ket []string) (Result[T], error) {
	if bra == nil && ket == nil {
		bra, ket = DefaultOrder(p)
	}
	r, err := e.Evaluate(ctx, p)
	if err != nil {
		return r, err
	}
	return Reorder(e.backend, r, bra, ket)
}

// Reorder re-annotates r to the given bra and ket order without
// recomputing it. bra followed by ket must be a permutation of r's labels.
func Reorder[T any](b backend.Backend[T], r Result[T], bra, ket []string) (Result[T], error) {
	out := append(slices.Clone(bra), ket...)
	v, err := b.Permute(1, r.Value, r.Labels(), out)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: v, Bra: slices.Clone(bra), Ket: slices.Clone(ket), RunID: r.RunID}, nil
}
