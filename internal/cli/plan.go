package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/pipeline"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// planOpts holds the command-line flags for the plan command.
type planOpts struct {
	equations []string // equations to plan, all if empty
	fold      string   // pairwise combination order: left or balanced
	tree      bool     // print the plan trees
	dot       string   // DOT output file
	svg       string   // SVG output file, needs a single equation
}

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var opts planOpts

	cmd := &cobra.Command{
		Use:   "plan [document]",
		Short: "Show the evaluation plans of a document",
		Long: `Binarize the equations of a document and print, per equation, the plan's
root fingerprint, node count and estimated operation count. The summary line
shows how much work fingerprint sharing saves across all equations.`,
		Example: `  # Fingerprints and costs of every equation
  tensorplan plan ccd.yaml

  # Plan tree of one equation, rendered with Graphviz
  tensorplan plan ccd.yaml -e r2 --tree --svg r2.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fold") {
				cfg.Evaluate.Fold = opts.fold
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return c.runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], cfg, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.equations, "equation", "e", nil, "equation to plan (repeatable, default all)")
	cmd.Flags().StringVar(&opts.fold, "fold", "", "combination order: left or balanced")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "print the plan trees")
	cmd.Flags().StringVar(&opts.dot, "dot", "", "write the plans as Graphviz DOT to this file")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render the plan of a single equation as SVG to this file")

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, out io.Writer, path string, cfg *config.Config, opts planOpts) error {
	conv, err := cfg.Convention()
	if err != nil {
		return err
	}
	runner := c.newRunner()
	runner.Logger = loggerFromContext(ctx)
	popts := pipeline.Options{DocumentPath: path, Config: cfg, Equations: opts.equations}

	doc, err := runner.Load(ctx, popts)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	planned, err := runner.Plan(ctx, doc, popts)
	if err != nil {
		return fmt.Errorf("plan %s: %w", path, err)
	}
	if opts.svg != "" && len(planned) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "--svg needs exactly one equation, got %d", len(planned))
	}

	rows := [][]string{{"EQUATION", "FINGERPRINT", "NODES", "OPS", "UNIQUE OPS"}}
	plans := make([]*plan.Plan, len(planned))
	for i, p := range planned {
		plans[i] = p.Plan
		cost := p.Plan.Cost(conv)
		rows = append(rows, []string{
			p.Equation.Name,
			p.Plan.Fingerprint().Short(),
			fmt.Sprint(cost.Nodes),
			fmt.Sprintf("%.0f", cost.Total),
			fmt.Sprintf("%.0f", cost.Unique),
		})
	}
	printTable(out, rows)

	if opts.tree {
		for _, p := range planned {
			printNewline(out)
			printInfo(out, "%s = %s", p.Equation.Name, p.Expr)
			fmt.Fprint(out, p.Plan.String())
		}
	}

	shared := plan.SharedCost(conv, plans...)
	printNewline(out)
	printStats(out,
		fmt.Sprintf("%d nodes", shared.Nodes),
		fmt.Sprintf("%d unique", shared.UniqueNodes),
		fmt.Sprintf("%.0f ops", shared.Total),
		fmt.Sprintf("%.0f with sharing", shared.Unique),
		fmt.Sprintf("%.0f%% saved", 100*shared.Savings()),
	)

	if opts.dot != "" {
		var b strings.Builder
		for _, p := range planned {
			b.WriteString(p.Plan.ToDOT(p.Equation.Name))
		}
		if err := writeFile(out, []byte(b.String()), opts.dot); err != nil {
			return err
		}
		printFile(out, opts.dot)
	}
	if opts.svg != "" {
		svg, err := planned[0].Plan.RenderSVG(ctx, planned[0].Equation.Name)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		if err := writeFile(out, svg, opts.svg); err != nil {
			return err
		}
		printFile(out, opts.svg)
	}
	return nil
}
