package config

import (
	"bytes"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/eval"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/fingerprint"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

const (
	// v0 is the first config format.
	v0 = 0

	// CurrentVersion is the config format this package reads and writes.
	CurrentVersion = v0
)

// Post-processing modes.
const (
	PostNone           = "none"
	PostSymmetrize     = "symmetrize"
	PostAntisymmetrize = "antisymmetrize"
)

// Leaf sources.
const (
	SourceRandom = "random"
	SourceDat    = "dat"
	SourceFile   = "file"
	SourceRedis  = "redis"
)

// Config is the run configuration of the tensorplan tool.
type Config struct {
	Version  int            `toml:"version"`
	Complex  bool           `toml:"complex"`
	Spaces   []SpaceConfig  `toml:"space"`
	Evaluate EvaluateConfig `toml:"evaluate"`
	Leaves   LeavesConfig   `toml:"leaves"`
}

// SpaceConfig declares one index space and the label prefixes selecting it.
type SpaceConfig struct {
	Name     string   `toml:"name"`
	Prefixes []string `toml:"prefixes"`
	Extent   int      `toml:"extent"`
}

// EvaluateConfig controls plan construction and evaluation.
type EvaluateConfig struct {
	Post       string `toml:"post"`
	Policy     string `toml:"policy"`
	Fold       string `toml:"fold"`
	Concurrent int    `toml:"concurrent"`
	UseBudgets bool   `toml:"use_budgets"`
}

// LeavesConfig selects where leaf tensor data comes from.
type LeavesConfig struct {
	Source   string `toml:"source"`
	Seed     uint64 `toml:"seed"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// Default returns the configuration used when no file is given: the
// occupied/virtual convention with 10 occupied and 20 virtual orbitals,
// left folding, no post-processing and random leaves.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Spaces: []SpaceConfig{
			{Name: "occ", Prefixes: []string{"i", "j", "k", "l", "m", "n"}, Extent: 10},
			{Name: "virt", Prefixes: []string{"a", "b", "c", "d", "e", "f"}, Extent: 20},
		},
		Evaluate: EvaluateConfig{
			Post:   PostNone,
			Policy: eval.Independent.String(),
			Fold:   "left",
		},
		Leaves: LeavesConfig{
			Source: SourceRandom,
			Seed:   42,
		},
	}
}

// Load reads and validates the TOML file at path. Unset fields take their
// values from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes, completes and validates TOML config data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse TOML")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields from Default. A config that
// declares any space replaces the default spaces entirely.
func applyDefaults(cfg *Config) {
	d := Default()
	if len(cfg.Spaces) == 0 {
		cfg.Spaces = d.Spaces
	}
	if cfg.Evaluate.Post == "" {
		cfg.Evaluate.Post = d.Evaluate.Post
	}
	if cfg.Evaluate.Policy == "" {
		cfg.Evaluate.Policy = d.Evaluate.Policy
	}
	if cfg.Evaluate.Fold == "" {
		cfg.Evaluate.Fold = d.Evaluate.Fold
	}
	if cfg.Leaves.Source == "" {
		cfg.Leaves.Source = d.Leaves.Source
	}
	if cfg.Leaves.Seed == 0 {
		cfg.Leaves.Seed = d.Leaves.Seed
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := c.Convention(); err != nil {
		return err
	}
	switch strings.ToLower(c.Evaluate.Post) {
	case PostNone, PostSymmetrize, PostAntisymmetrize:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "evaluate.post: unknown mode %q", c.Evaluate.Post)
	}
	policy, err := eval.ParsePolicy(c.Evaluate.Policy)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "evaluate.policy")
	}
	if mode, ok := c.Post(); ok {
		if err := eval.CheckPolicy(mode, policy); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "evaluate")
		}
	}
	if _, ok := plan.FolderByName(c.Evaluate.Fold); !ok {
		return errors.New(errors.ErrCodeInvalidConfig, "evaluate.fold: unknown folder %q", c.Evaluate.Fold)
	}
	if c.Evaluate.Concurrent < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "evaluate.concurrent: must not be negative")
	}
	switch c.Leaves.Source {
	case SourceRandom:
	case SourceDat, SourceFile:
		if c.Leaves.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "leaves.dir is required for source %q", c.Leaves.Source)
		}
	case SourceRedis:
		if c.Leaves.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "leaves.redis_url is required for source %q", SourceRedis)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "leaves.source: unknown source %q", c.Leaves.Source)
	}
	return nil
}

// Convention builds the index convention declared by the spaces.
func (c *Config) Convention() (*expr.Convention, error) {
	if len(c.Spaces) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no index spaces declared")
	}
	conv := expr.NewConvention()
	for _, s := range c.Spaces {
		if len(s.Prefixes) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "space %s: no prefixes", s.Name)
		}
		if err := conv.AddSpace(s.Name, s.Extent, s.Prefixes...); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// Fingerprint returns the hashing configuration.
func (c *Config) Fingerprint() fingerprint.Config {
	return fingerprint.Config{Complex: c.Complex}
}

// Folder returns the configured pairwise combination order.
func (c *Config) Folder() plan.Folder {
	f, ok := plan.FolderByName(c.Evaluate.Fold)
	if !ok {
		return plan.LeftFold{}
	}
	return f
}

// Policy returns the configured permutation policy, Independent if the
// name is not valid.
func (c *Config) Policy() eval.Policy {
	p, err := eval.ParsePolicy(c.Evaluate.Policy)
	if err != nil {
		return eval.Independent
	}
	return p
}

// Post returns the configured post-processing mode. ok is false when no
// post-processing is requested.
func (c *Config) Post() (mode eval.Mode, ok bool) {
	m, err := eval.ParseMode(c.Evaluate.Post)
	if err != nil {
		return 0, false
	}
	return m, true
}

// SpaceNames returns the declared space names in order.
func (c *Config) SpaceNames() []string {
	names := make([]string, len(c.Spaces))
	for i, s := range c.Spaces {
		names[i] = s.Name
	}
	return names
}

// HasSpace reports whether a space with the given name is declared.
func (c *Config) HasSpace(name string) bool {
	return slices.Contains(c.SpaceNames(), name)
}

// Encode returns the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return buf.Bytes(), nil
}
