package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/cache"
	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/eval"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
	"github.com/matzehuels/tensorplan/pkg/leaf"
	"github.com/matzehuels/tensorplan/pkg/observability"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// Runner executes documents.
//
// A nil Cache gives every run a fresh cache chosen from the config: a
// [cache.Shared] when evaluate.concurrent is positive, a [cache.Manager]
// otherwise. A nil Leaves yielder is built per run from the config's leaf
// source. Setting either makes the Runner reuse it across runs.
type Runner struct {
	Cache  cache.Cache[*dense.Tensor]
	Leaves leaf.Yielder[*dense.Tensor]
	Logger *log.Logger
}

// NewRunner creates a runner. Nil arguments are resolved per run; a nil
// logger means log.Default().
func NewRunner(c cache.Cache[*dense.Tensor], y leaf.Yielder[*dense.Tensor], logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Leaves: y,
		Logger: logger,
	}
}

// Execute runs the complete load → plan → evaluate → post-process pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (res *Result, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	cfg := opts.Config
	conv, err := cfg.Convention()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	done := 0
	defer func() {
		observability.Pipeline().OnRunComplete(ctx, done, time.Since(start), err)
	}()
	res = &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	doc, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	res.Document = doc
	res.Stats.LoadTime = time.Since(loadStart)

	opts.Logger.Info("loaded document",
		"name", doc.Name,
		"equations", len(doc.Equations),
		"duration", res.Stats.LoadTime)

	// Stage 2: Plan
	planStart := time.Now()
	planned, err := r.Plan(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	plans := make([]*plan.Plan, len(planned))
	for i, p := range planned {
		plans[i] = p.Plan
	}
	res.Stats.Equations = len(planned)
	res.Stats.Cost = plan.SharedCost(conv, plans...)
	res.Stats.Nodes = res.Stats.Cost.Nodes
	res.Stats.UniqueNodes = res.Stats.Cost.UniqueNodes
	res.Stats.PlanTime = time.Since(planStart)

	opts.Logger.Info("built plans",
		"plans", len(plans),
		"nodes", res.Stats.Nodes,
		"unique", res.Stats.UniqueNodes,
		"duration", res.Stats.PlanTime)

	// Stage 3: Evaluate
	evalStart := time.Now()
	c := r.cacheFor(cfg)
	y, closer, err := r.leavesFor(ctx, cfg, doc)
	if err != nil {
		return nil, fmt.Errorf("leaves: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	evalOpts := []eval.Option{
		eval.WithConvention(conv),
		eval.WithLogger(opts.Logger),
		eval.WithConcurrency(cfg.Evaluate.Concurrent),
	}
	if cfg.Evaluate.UseBudgets {
		evalOpts = append(evalOpts, eval.WithUseBudgets())
	}
	ev := eval.New[*dense.Tensor](dense.Backend{}, c, y, evalOpts...)
	results, err := ev.EvaluateAll(ctx, plans)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	res.Stats.EvalTime = time.Since(evalStart)
	res.CacheInfo = cacheInfo(c)

	opts.Logger.Info("evaluated plans",
		"plans", len(plans),
		"hits", res.CacheInfo.Hits,
		"misses", res.CacheInfo.Misses,
		"duration", res.Stats.EvalTime)

	// Stage 4: Post-process
	postStart := time.Now()
	res.Equations = make([]EquationResult, 0, len(planned))
	for i, p := range planned {
		out, err := finish(dense.Backend{}, results[i], p, cfg)
		if err != nil {
			return nil, fmt.Errorf("equation %s: %w", p.Equation.Name, err)
		}
		res.Equations = append(res.Equations, out)
	}
	res.Stats.PostTime = time.Since(postStart)
	done = len(res.Equations)

	opts.Logger.Info("finished equations",
		"equations", len(res.Equations),
		"duration", res.Stats.PostTime)

	return res, nil
}

// Load returns opts.Document, or reads the document at opts.DocumentPath.
func (r *Runner) Load(ctx context.Context, opts Options) (doc *exprfile.Document, err error) {
	if opts.Document != nil {
		return opts.Document, nil
	}
	if opts.DocumentPath == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "a document or document path is required")
	}
	start := time.Now()
	defer func() {
		n := 0
		if doc != nil {
			n = len(doc.Equations)
		}
		observability.Pipeline().OnLoadComplete(ctx, opts.DocumentPath, n, time.Since(start), err)
	}()
	return exprfile.Load(opts.DocumentPath)
}

// Plan builds and binarizes the selected equations of doc.
func (r *Runner) Plan(ctx context.Context, doc *exprfile.Document, opts Options) ([]Planned, error) {
	r.applyLogger(&opts)
	if opts.Document == nil && opts.DocumentPath == "" {
		opts.Document = doc
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	cfg := opts.Config
	conv, err := cfg.Convention()
	if err != nil {
		return nil, err
	}
	eqs, err := selectEquations(doc, opts.Equations)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	planned := make([]Planned, 0, len(eqs))
	for _, eq := range eqs {
		start := time.Now()
		e, err := eq.Build(conv)
		if err != nil {
			hooks.OnBinarizeComplete(ctx, eq.Name, 0, time.Since(start), err)
			return nil, err
		}
		p, err := plan.Binarize(e, plan.WithConfig(cfg.Fingerprint()), plan.WithFolder(cfg.Folder()))
		if err != nil {
			err = fmt.Errorf("equation %s: %w", eq.Name, err)
			hooks.OnBinarizeComplete(ctx, eq.Name, 0, time.Since(start), err)
			return nil, err
		}
		hooks.OnBinarizeComplete(ctx, eq.Name, p.Len(), time.Since(start), nil)
		opts.Logger.Debug("binarized equation",
			"equation", eq.Name,
			"nodes", p.Len(),
			"fingerprint", p.Fingerprint().Short())
		planned = append(planned, Planned{Equation: eq, Expr: e, Plan: p})
	}
	return planned, nil
}

// Close releases the runner's leaf source if it holds connections.
func (r *Runner) Close() error {
	if c, ok := r.Leaves.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) cacheFor(cfg *config.Config) cache.Cache[*dense.Tensor] {
	if r.Cache != nil {
		return r.Cache
	}
	if cfg.Evaluate.Concurrent > 0 {
		return cache.NewShared[*dense.Tensor]()
	}
	return cache.NewManager[*dense.Tensor]()
}

func (r *Runner) leavesFor(ctx context.Context, cfg *config.Config, doc *exprfile.Document) (leaf.Yielder[*dense.Tensor], io.Closer, error) {
	if r.Leaves != nil {
		return r.Leaves, nil, nil
	}
	return NewYielder(ctx, cfg, doc)
}

func selectEquations(doc *exprfile.Document, names []string) ([]*exprfile.Equation, error) {
	if len(names) == 0 {
		eqs := make([]*exprfile.Equation, len(doc.Equations))
		for i := range doc.Equations {
			eqs[i] = &doc.Equations[i]
		}
		return eqs, nil
	}
	eqs := make([]*exprfile.Equation, 0, len(names))
	for _, name := range names {
		eq, ok := doc.Equation(name)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "document has no equation %s", name)
		}
		eqs = append(eqs, eq)
	}
	return eqs, nil
}

// finish lays out an evaluated equation in its requested order and applies
// its post-processing. Equation-level post and policy override the config.
func finish(b dense.Backend, r eval.Result[*dense.Tensor], p Planned, cfg *config.Config) (EquationResult, error) {
	eq := p.Equation
	bra, ket := eq.Bra, eq.Ket
	if bra == nil && ket == nil {
		bra, ket = eval.DefaultOrder(p.Plan)
	}

	mode, post := cfg.Post()
	if eq.Post != "" {
		if eq.Post == config.PostNone {
			post = false
		} else {
			m, err := eval.ParseMode(eq.Post)
			if err != nil {
				return EquationResult{}, err
			}
			mode, post = m, true
		}
	}
	policy := cfg.Policy()
	if eq.Policy != "" {
		pol, err := eval.ParsePolicy(eq.Policy)
		if err != nil {
			return EquationResult{}, err
		}
		policy = pol
	}

	var (
		out eval.Result[*dense.Tensor]
		err error
	)
	name := config.PostNone
	if post {
		out, err = eval.PostProcess[*dense.Tensor](b, r, bra, ket, policy, mode)
		name = mode.String()
	} else {
		out, err = eval.Reorder[*dense.Tensor](b, r, bra, ket)
	}
	if err != nil {
		return EquationResult{}, err
	}
	return EquationResult{
		Name:  eq.Name,
		Plan:  p.Plan,
		Value: out.Value,
		Bra:   out.Bra,
		Ket:   out.Ket,
		Norm:  out.Value.Norm(),
		Post:  name,
		RunID: out.RunID,
	}, nil
}

func cacheInfo(c cache.Cache[*dense.Tensor]) CacheInfo {
	s := c.Stats()
	return CacheInfo{
		Hits:    s.Hits,
		Misses:  s.Misses,
		Stores:  s.Stores,
		Entries: c.Len(),
	}
}
