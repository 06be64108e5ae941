// Package pipeline runs equation documents end to end.
//
// A run has four stages:
//
//  1. Load: read the YAML equation document (see package exprfile)
//  2. Plan: build the expression of each selected equation and binarize it
//  3. Evaluate: evaluate every plan against one shared cache
//  4. Post-process: reorder or (anti)symmetrize each result
//
// The CLI and tests share this code so a document evaluates the same way
// everywhere.
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	defer runner.Close()
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    DocumentPath: "ccd.yaml",
//	    Config:       cfg,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, eq := range res.Equations {
//	    fmt.Println(eq.Name, eq.Norm)
//	}
//
// Stages can also be run on their own: [Runner.Load] returns the document
// and [Runner.Plan] the plans without evaluating anything.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tensorplan/pkg/backend/dense"
	"github.com/matzehuels/tensorplan/pkg/config"
	"github.com/matzehuels/tensorplan/pkg/errors"
	"github.com/matzehuels/tensorplan/pkg/expr"
	"github.com/matzehuels/tensorplan/pkg/exprfile"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	// DocumentPath is read when Document is nil.
	DocumentPath string

	// Document is an already parsed document.
	Document *exprfile.Document

	// Config selects the convention, folding, post-processing and leaf
	// source. Nil means config.Default().
	Config *config.Config

	// Equations restricts the run to the named equations, in this order.
	// Empty runs every equation of the document.
	Equations []string

	// Logger receives progress messages. Nil discards them.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Document == nil && o.DocumentPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "a document or document path is required")
	}
	if o.Config == nil {
		o.Config = config.Default()
	} else if err := o.Config.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(o.Equations))
	for _, name := range o.Equations {
		if name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "empty equation name")
		}
		if seen[name] {
			return errors.New(errors.ErrCodeInvalidInput, "equation %s selected twice", name)
		}
		seen[name] = true
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Result - Pipeline Output
// =============================================================================

// Result is the output of a full run.
type Result struct {
	Document  *exprfile.Document
	Equations []EquationResult
	Stats     Stats
	CacheInfo CacheInfo
}

// Equation returns the result of the named equation.
func (r *Result) Equation(name string) (*EquationResult, bool) {
	for i := range r.Equations {
		if r.Equations[i].Name == name {
			return &r.Equations[i], true
		}
	}
	return nil, false
}

// EquationResult is one evaluated equation.
type EquationResult struct {
	Name  string
	Plan  *plan.Plan
	Value *dense.Tensor
	Bra   []string
	Ket   []string
	Norm  float64

	// Post is the post-processing applied: "none", "symmetrize" or
	// "antisymmetrize".
	Post  string
	RunID string
}

// Stats holds sizes and stage durations of a run.
type Stats struct {
	Equations   int
	Nodes       int
	UniqueNodes int
	Cost        plan.Cost
	LoadTime    time.Duration
	PlanTime    time.Duration
	EvalTime    time.Duration
	PostTime    time.Duration
}

// Total returns the summed stage durations.
func (s Stats) Total() time.Duration {
	return s.LoadTime + s.PlanTime + s.EvalTime + s.PostTime
}

// CacheInfo summarizes cache traffic of a run.
type CacheInfo struct {
	Hits    int
	Misses  int
	Stores  int
	Entries int
}

// Planned is an equation with its built expression and plan.
type Planned struct {
	Equation *exprfile.Equation
	Expr     expr.Expr
	Plan     *plan.Plan
}
