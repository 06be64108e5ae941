// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pipeline runs, plan evaluation, and cache traffic.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the evaluator never
// imports a metrics backend. The promhooks subpackage provides a Prometheus
// implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := promhooks.New(prometheus.DefaultRegisterer)
//	    observability.SetEvalHooks(hooks)
//	    observability.SetCacheHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Eval().OnEvaluateStart(ctx, runID, plan.Len())
//	// ... walk the plan ...
//	observability.Eval().OnEvaluateComplete(ctx, runID, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the equation pipeline.
type PipelineHooks interface {
	// OnLoadComplete records loading an equation document.
	OnLoadComplete(ctx context.Context, path string, equations int, duration time.Duration, err error)

	// OnBinarizeComplete records building the plan of one equation.
	OnBinarizeComplete(ctx context.Context, equation string, nodes int, duration time.Duration, err error)

	// OnRunComplete records the end of a full pipeline run.
	OnRunComplete(ctx context.Context, equations int, duration time.Duration, err error)
}

// =============================================================================
// Eval Hooks
// =============================================================================

// EvalHooks receives events from the plan evaluator.
type EvalHooks interface {
	// OnEvaluateStart records the start of a plan evaluation.
	OnEvaluateStart(ctx context.Context, runID string, nodes int)

	// OnEvaluateComplete records the end of a plan evaluation.
	OnEvaluateComplete(ctx context.Context, runID string, duration time.Duration, err error)

	// OnLeafYield records fetching a leaf tensor from a yielder.
	OnLeafYield(ctx context.Context, label string, duration time.Duration, err error)

	// OnCombine records computing a product or sum node.
	OnCombine(ctx context.Context, kind string, duration time.Duration)

	// OnPostProcess records a (anti)symmetrization with the number of
	// permuted terms accumulated.
	OnPostProcess(ctx context.Context, mode string, terms int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations. kind is the plan node
// kind of the entry: "leaf", "product" or "sum".
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, kind string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, kind string)

	// OnCacheStore records a cache write.
	OnCacheStore(ctx context.Context, kind, lifetime string)

	// OnCacheReset records entries dropped by a reset.
	OnCacheReset(ctx context.Context, scope string, dropped int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopPipelineHooks) OnBinarizeComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnRunComplete(context.Context, int, time.Duration, error) {}

// NoopEvalHooks is a no-op implementation of EvalHooks.
type NoopEvalHooks struct{}

func (NoopEvalHooks) OnEvaluateStart(context.Context, string, int)                    {}
func (NoopEvalHooks) OnEvaluateComplete(context.Context, string, time.Duration, error) {}
func (NoopEvalHooks) OnLeafYield(context.Context, string, time.Duration, error)        {}
func (NoopEvalHooks) OnCombine(context.Context, string, time.Duration)                 {}
func (NoopEvalHooks) OnPostProcess(context.Context, string, int, time.Duration)        {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)           {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)          {}
func (NoopCacheHooks) OnCacheStore(context.Context, string, string) {}
func (NoopCacheHooks) OnCacheReset(context.Context, string, int)    {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	evalHooks     EvalHooks     = NoopEvalHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetEvalHooks registers custom evaluator hooks.
// This should be called once at application startup before any evaluation.
func SetEvalHooks(h EvalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evalHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Eval returns the registered evaluator hooks.
func Eval() EvalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evalHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	evalHooks = NoopEvalHooks{}
	cacheHooks = NoopCacheHooks{}
}
