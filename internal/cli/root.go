package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute builds the command tree and runs it with args.
//
// Logging:
//   - Default: info level
//   - With --verbose (-v): debug level
//
// The logger is attached to the command context and reachable from every
// command via loggerFromContext.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	var verbose bool

	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
