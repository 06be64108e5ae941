package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tensorplan/pkg/perm"
)

// permCommand creates the perm command for inspecting the permutations used
// by (anti)symmetrization.
func (c *CLI) permCommand() *cobra.Command {
	var labels string
	var limit int

	cmd := &cobra.Command{
		Use:   "perm [n | permutation]",
		Short: "List permutations with their parity (debug tool)",
		Long: `List the permutations of n elements in the order (anti)symmetrization
visits them, with the sign each term receives.

Given a comma-separated permutation instead of n, print its parity, sign and
inverse. With --labels the permutation is also applied to the labels.`,
		Example: `  # All 6 permutations of three indices
  tensorplan perm 3 --labels i_1,i_2,i_3

  # Parity of a single permutation
  tensorplan perm 2,0,1 --labels a_1,a_2,a_3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			if labels != "" {
				names = strings.Split(labels, ",")
			}
			out := cmd.OutOrStdout()
			if strings.Contains(args[0], ",") {
				p, err := parsePermutation(args[0])
				if err != nil {
					return fmt.Errorf("invalid permutation %q: %w", args[0], err)
				}
				return showPermutation(out, p, names)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("invalid size %q", args[0])
			}
			return listPermutations(out, n, limit, names)
		},
	}

	cmd.Flags().StringVar(&labels, "labels", "", "comma-separated labels to permute")
	cmd.Flags().IntVar(&limit, "limit", 0, "list at most this many permutations (0 for all)")

	return cmd
}

func showPermutation(w io.Writer, p []int, labels []string) error {
	if labels != nil && len(labels) != len(p) {
		return fmt.Errorf("%d labels for a permutation of %d elements", len(labels), len(p))
	}
	printKeyValue(w, "Permutation", fmt.Sprint(p))
	printKeyValue(w, "Parity", parityName(p))
	printKeyValue(w, "Sign", fmt.Sprintf("%+d", perm.Sign(p)))
	printKeyValue(w, "Inverse", fmt.Sprint(perm.Inverse(p)))
	if labels != nil {
		printKeyValue(w, "Labels", strings.Join(perm.Apply(p, labels), ","))
	}
	return nil
}

func listPermutations(w io.Writer, n, limit int, labels []string) error {
	if labels != nil && len(labels) != n {
		return fmt.Errorf("%d labels for permutations of %d elements", len(labels), n)
	}
	header := []string{"#", "PERMUTATION", "SIGN"}
	if labels != nil {
		header = append(header, "LABELS")
	}
	rows := [][]string{header}
	ps := perm.Generate(n, limit)
	for i, p := range ps {
		row := []string{fmt.Sprint(i), fmt.Sprint(p), fmt.Sprintf("%+d", perm.Sign(p))}
		if labels != nil {
			row = append(row, strings.Join(perm.Apply(p, labels), ","))
		}
		rows = append(rows, row)
	}
	printTable(w, rows)
	printDetail(w, "%d of %d permutations", len(ps), perm.Factorial(n))
	return nil
}

func parityName(p []int) string {
	if perm.Parity(p) == 0 {
		return "even"
	}
	return "odd"
}

// parsePermutation parses a string like "2,0,1" into a permutation.
func parsePermutation(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("need at least 2 indices")
	}
	result := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", p)
		}
		result[i] = n
	}
	if !perm.IsPermutation(result) {
		return nil, fmt.Errorf("%v is not a permutation of 0..%d", result, len(result)-1)
	}
	return result, nil
}
