package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tensorplan/pkg/buildinfo"
	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "tensorplan"

	// configFile is the name of the config file in the config directory.
	configFile = "config.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is set by the --config flag. Empty means the default
	// config file if it exists, built-in defaults otherwise.
	ConfigPath string

	out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects command output, which goes to stdout by default.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Tensorplan evaluates tensor network expressions",
		Long:         `Tensorplan binarizes tensor contraction expressions into evaluation plans, evaluates them with structural caching, and finds common subnetworks between expressions.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default "+defaultConfigHint()+")")

	// Register all subcommands
	root.AddCommand(c.evaluateCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.factorizeCommand())
	root.AddCommand(c.permCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(nil, nil, c.Logger)
}

// loadConfig reads the config selected by --config, the default config
// file, or the built-in defaults, in that order.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.ConfigPath != "" {
		return config.Load(c.ConfigPath)
	}
	dir, err := configDir()
	if err != nil {
		return config.Default(), nil
	}
	cfg, err := config.Load(filepath.Join(dir, configFile))
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		c.Logger.Debug("no config file, using defaults", "dir", dir)
		return config.Default(), nil
	}
	return cfg, err
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/tensorplan/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

func defaultConfigHint() string {
	return filepath.Join("$XDG_CONFIG_HOME", appName, configFile)
}

// =============================================================================
// Output Helpers
// =============================================================================

// writeFile writes data to path, or to w if path is empty.
func writeFile(w io.Writer, data []byte, path string) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
