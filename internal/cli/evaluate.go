package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/observability"
	"github.com/matzehuels/tensorplan/pkg/observability/promhooks"
	"github.com/matzehuels/tensorplan/pkg/pipeline"
)

// evaluateOpts holds the command-line flags for the evaluate command. Flags
// left unset keep the value from the config file.
type evaluateOpts struct {
	equations  []string // equations to evaluate, all if empty
	source     string   // leaf source: random, dat, file or redis
	seed       uint64   // seed for random leaves
	dir        string   // directory of .dat files or of the file store
	redisURL   string   // redis://host:port/db for the redis source
	post       string   // post-processing: none, symmetrize or antisymmetrize
	policy     string   // permutation policy: independent or joint
	fold       string   // pairwise combination order: left or balanced
	concurrent int      // plans evaluated at once, 0 for sequential
	budgets    bool     // release intermediates after their last use
	metrics    bool     // print Prometheus counters after the run
}

// evaluateCommand creates the evaluate command.
func (c *CLI) evaluateCommand() *cobra.Command {
	var opts evaluateOpts

	cmd := &cobra.Command{
		Use:   "evaluate [document]",
		Short: "Evaluate the equations of a document",
		Long: `Evaluate every equation of a YAML equation document and print the norm
of each result.

Leaf tensors come from the source selected in the config file or by --source:
deterministic random data, full-range .dat files sliced per index space, an
on-disk tensor store, or a Redis server. All equations share one cache, so
subexpressions common to several equations are computed once.`,
		Example: `  # Random leaves with the default convention
  tensorplan evaluate ccd.yaml

  # Two equations from .dat files, antisymmetrized
  tensorplan evaluate ccd.yaml -e r1 -e r2 --source dat --dir ./data --post antisymmetrize

  # Concurrent evaluation with Prometheus counters
  tensorplan evaluate ccd.yaml --concurrent 4 --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cfg, cmd.Flags()); err != nil {
				return err
			}
			return c.runEvaluate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.equations, "equation", "e", nil, "equation to evaluate (repeatable, default all)")
	cmd.Flags().StringVar(&opts.source, "source", "", "leaf source: random, dat, file or redis")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for random leaves")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of .dat files or of the tensor store")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the redis source")
	cmd.Flags().StringVar(&opts.post, "post", "", "post-processing: none, symmetrize or antisymmetrize")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "permutation policy: independent or joint")
	cmd.Flags().StringVar(&opts.fold, "fold", "", "combination order: left or balanced")
	cmd.Flags().IntVar(&opts.concurrent, "concurrent", 0, "evaluate up to n plans at once")
	cmd.Flags().BoolVar(&opts.budgets, "use-budgets", false, "release intermediates after their last use")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print Prometheus counters after the run")

	return cmd
}

// apply copies the flags the user set onto cfg and validates the result.
func (o evaluateOpts) apply(cfg *config.Config, flags *pflag.FlagSet) error {
	set := func(name string) bool { return flags.Changed(name) }
	if set("source") {
		cfg.Leaves.Source = o.source
	}
	if set("seed") {
		cfg.Leaves.Seed = o.seed
	}
	if set("dir") {
		cfg.Leaves.Dir = o.dir
	}
	if set("redis-url") {
		cfg.Leaves.RedisURL = o.redisURL
	}
	if set("post") {
		cfg.Evaluate.Post = strings.ToLower(o.post)
	}
	if set("policy") {
		cfg.Evaluate.Policy = o.policy
	}
	if set("fold") {
		cfg.Evaluate.Fold = o.fold
	}
	if set("concurrent") {
		cfg.Evaluate.Concurrent = o.concurrent
	}
	if set("use-budgets") {
		cfg.Evaluate.UseBudgets = o.budgets
	}
	return cfg.Validate()
}

// runEvaluate executes the pipeline and prints one row per equation.
func (c *CLI) runEvaluate(ctx context.Context, out, errOut io.Writer, path string, cfg *config.Config, opts evaluateOpts) error {
	logger := loggerFromContext(ctx)

	var reg *prometheus.Registry
	if opts.metrics {
		reg = prometheus.NewRegistry()
		hooks := promhooks.New(reg)
		observability.SetPipelineHooks(hooks)
		observability.SetEvalHooks(hooks)
		observability.SetCacheHooks(hooks)
		defer observability.Reset()
	}

	runner := c.newRunner()
	runner.Logger = logger
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinner(ctx, errOut, fmt.Sprintf("Evaluating %s...", path))
	spinner.Start()

	res, err := runner.Execute(ctx, pipeline.Options{
		DocumentPath: path,
		Config:       cfg,
		Equations:    opts.equations,
		Logger:       logger,
	})
	if err != nil {
		spinner.StopWithError(out, "Evaluation failed")
		return fmt.Errorf("evaluate %s: %w", path, err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done("evaluated document", "equations", len(res.Equations))

	printSuccess(out, "Evaluated %d equations", len(res.Equations))
	rows := [][]string{{"EQUATION", "SHAPE", "POST", "NORM"}}
	for _, eq := range res.Equations {
		rows = append(rows, []string{
			eq.Name,
			formatShape(eq.Value.Shape()),
			eq.Post,
			fmt.Sprintf("%.12g", eq.Norm),
		})
	}
	printTable(out, rows)
	printStats(out,
		fmt.Sprintf("%d nodes", res.Stats.Nodes),
		fmt.Sprintf("%d unique", res.Stats.UniqueNodes),
		fmt.Sprintf("%.0f%% shared", 100*res.Stats.Cost.Savings()),
		fmt.Sprintf("%d hits", res.CacheInfo.Hits),
		fmt.Sprintf("%d misses", res.CacheInfo.Misses),
		res.Stats.Total().String(),
	)

	if reg != nil {
		printNewline(out)
		if err := printMetrics(out, reg); err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
	}
	return nil
}

// printMetrics prints every counter and histogram sample count in reg,
// sorted by name.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	rows := [][]string{{"METRIC", "VALUE"}}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				rows = append(rows, []string{name, fmt.Sprintf("%g", m.GetCounter().GetValue())})
			case m.GetHistogram() != nil:
				rows = append(rows, []string{name + " count", fmt.Sprintf("%d", m.GetHistogram().GetSampleCount())})
			}
		}
	}
	slices.SortStableFunc(rows[1:], func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	printTable(w, rows)
	return nil
}

func formatShape(shape []int) string {
	if len(shape) == 0 {
		return "scalar"
	}
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, "x")
}
