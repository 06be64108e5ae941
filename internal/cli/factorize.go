package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
	"github.com/matzehuels/tensorplan/pkg/factorize"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// factorizeCommand creates the factorize command.
func (c *CLI) factorizeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "factorize [document] [equation-a] [equation-b]",
		Short: "Find the largest common subnetwork of two equations",
		Long: `Find the largest common subnetwork of two equations of a document.

For two products the subnetwork is the largest set of factors that match
tensor for tensor and bond for bond, up to index renaming. For two sums it is
the largest set of structurally equal summands. When both equations are
products, the shared factors are nested so they evaluate once, and the
factored document can be written with --output.`,
		Example: `  # Print the matched factor positions and the operation count saved
  tensorplan factorize ccd.yaml r2a r2b

  # Write the document with both equations factored
  tensorplan factorize ccd.yaml r2a r2b -o ccd.factored.yaml`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runFactorize(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2], cfg, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the factored document to this file")

	return cmd
}

func (c *CLI) runFactorize(ctx context.Context, out io.Writer, path, nameA, nameB string, cfg *config.Config, output string) error {
	logger := loggerFromContext(ctx)
	conv, err := cfg.Convention()
	if err != nil {
		return err
	}
	doc, err := exprfile.Load(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	ea, err := buildEquation(doc, nameA, conv)
	if err != nil {
		return err
	}
	eb, err := buildEquation(doc, nameB, conv)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	opt := factorize.WithConfig(cfg.Fingerprint())
	posA, posB, err := factorize.Common(ea, eb, opt)
	if err != nil {
		return fmt.Errorf("factorize: %w", err)
	}
	prog.done("searched common subnetwork", "matched", len(posA))

	if len(posA) == 0 {
		printWarning(out, "%s and %s have no common subnetwork", nameA, nameB)
		return nil
	}
	unit := "factors"
	if ea.Kind() == expr.KindSum {
		unit = "summands"
	}
	printSuccess(out, "Common subnetwork of %d %s", len(posA), unit)
	printKeyValue(out, nameA, fmt.Sprint(posA))
	printKeyValue(out, nameB, fmt.Sprint(posB))

	pa, okA := ea.(*expr.Product)
	pb, okB := eb.(*expr.Product)
	if !okA || !okB {
		return nil
	}
	fa, fb, shared, err := factorize.Factor(pa, pb, opt)
	if err != nil {
		return fmt.Errorf("factor: %w", err)
	}
	printKeyValue(out, "shared", shared.String())

	before, err := sharedCost(cfg, conv, ea, eb)
	if err != nil {
		return err
	}
	after, err := sharedCost(cfg, conv, fa, fb)
	if err != nil {
		return err
	}
	printStats(out,
		fmt.Sprintf("%.0f ops before", before.Unique),
		fmt.Sprintf("%.0f ops after", after.Unique),
		fmt.Sprintf("%d unique nodes", after.UniqueNodes),
	)

	if output == "" {
		return nil
	}
	factored := *doc
	factored.Equations = append([]exprfile.Equation(nil), doc.Equations...)
	for name, e := range map[string]expr.Expr{nameA: fa, nameB: fb} {
		n, err := exprfile.FromExpr(e)
		if err != nil {
			return err
		}
		eq, _ := factored.Equation(name)
		eq.Expr = n
	}
	data, err := exprfile.Encode(&factored)
	if err != nil {
		return err
	}
	if err := writeFile(out, data, output); err != nil {
		return err
	}
	printFile(out, output)
	printNextStep(out, "Compare", "tensorplan plan "+output+" -e "+nameA+" -e "+nameB)
	return nil
}

func buildEquation(doc *exprfile.Document, name string, conv *expr.Convention) (expr.Expr, error) {
	eq, ok := doc.Equation(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document has no equation %s", name)
	}
	return eq.Build(conv)
}

func sharedCost(cfg *config.Config, conv *expr.Convention, es ...expr.Expr) (plan.Cost, error) {
	plans := make([]*plan.Plan, len(es))
	for i, e := range es {
		p, err := plan.Binarize(e, plan.WithConfig(cfg.Fingerprint()), plan.WithFolder(cfg.Folder()))
		if err != nil {
			return plan.Cost{}, err
		}
		plans[i] = p
	}
	return plan.SharedCost(conv, plans...), nil
}
