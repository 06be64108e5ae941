// Package promhooks implements the observability hook interfaces with
// Prometheus collectors.
//
//	h := promhooks.New(prometheus.DefaultRegisterer)
//	observability.SetEvalHooks(h)
//	observability.SetCacheHooks(h)
//	observability.SetPipelineHooks(h)
package promhooks

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/tensorplan/pkg/observability"
)

const namespace = "tensorplan"

// Hooks records evaluator, cache and pipeline events as Prometheus metrics.
type Hooks struct {
	evaluations  *prometheus.CounterVec
	evalDuration prometheus.Histogram
	leafYields   *prometheus.CounterVec
	leafDuration prometheus.Histogram
	combines     *prometheus.CounterVec
	combineTime  *prometheus.HistogramVec
	postTerms    *prometheus.CounterVec
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheStores  *prometheus.CounterVec
	cacheDropped *prometheus.CounterVec
	binarized    *prometheus.CounterVec
	planNodes    prometheus.Histogram
	runs         *prometheus.CounterVec
}

var (
	_ observability.EvalHooks     = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.PipelineHooks = (*Hooks)(nil)
)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "evaluations_total",
			Help:      "Plan evaluations by status",
		}, []string{"status"}),
		evalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of a plan evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		leafYields: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "leaf_yields_total",
			Help:      "Leaf tensors fetched from yielders by label and status",
		}, []string{"label", "status"}),
		leafDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "leaf_yield_duration_seconds",
			Help:      "Time to fetch one leaf tensor",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		combines: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "combines_total",
			Help:      "Product and sum nodes computed",
		}, []string{"kind"}),
		combineTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "combine_duration_seconds",
			Help:      "Time to compute one product or sum node",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		postTerms: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eval",
			Name:      "postprocess_terms_total",
			Help:      "Permuted terms accumulated by (anti)symmetrization",
		}, []string{"mode"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by node kind",
		}, []string{"kind"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by node kind",
		}, []string{"kind"}),
		cacheStores: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stores_total",
			Help:      "Cache writes by node kind and lifetime",
		}, []string{"kind", "lifetime"}),
		cacheDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "dropped_total",
			Help:      "Entries dropped by cache resets",
		}, []string{"scope"}),
		binarized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "plans_total",
			Help:      "Equations binarized by status",
		}, []string{"status"}),
		planNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "plan_nodes",
			Help:      "Number of nodes per binarized plan",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by status",
		}, []string{"status"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnEvaluateStart implements observability.EvalHooks.
func (h *Hooks) OnEvaluateStart(context.Context, string, int) {}

// OnEvaluateComplete implements observability.EvalHooks.
func (h *Hooks) OnEvaluateComplete(_ context.Context, _ string, d time.Duration, err error) {
	h.evaluations.WithLabelValues(status(err)).Inc()
	h.evalDuration.Observe(d.Seconds())
}

// OnLeafYield implements observability.EvalHooks.
func (h *Hooks) OnLeafYield(_ context.Context, label string, d time.Duration, err error) {
	h.leafYields.WithLabelValues(label, status(err)).Inc()
	h.leafDuration.Observe(d.Seconds())
}

// OnCombine implements observability.EvalHooks.
func (h *Hooks) OnCombine(_ context.Context, kind string, d time.Duration) {
	h.combines.WithLabelValues(kind).Inc()
	h.combineTime.WithLabelValues(kind).Observe(d.Seconds())
}

// OnPostProcess implements observability.EvalHooks.
func (h *Hooks) OnPostProcess(_ context.Context, mode string, terms int, _ time.Duration) {
	h.postTerms.WithLabelValues(mode).Add(float64(terms))
}

// OnCacheHit implements observability.CacheHooks.
func (h *Hooks) OnCacheHit(_ context.Context, kind string) {
	h.cacheHits.WithLabelValues(kind).Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (h *Hooks) OnCacheMiss(_ context.Context, kind string) {
	h.cacheMisses.WithLabelValues(kind).Inc()
}

// OnCacheStore implements observability.CacheHooks.
func (h *Hooks) OnCacheStore(_ context.Context, kind, lifetime string) {
	h.cacheStores.WithLabelValues(kind, lifetime).Inc()
}

// OnCacheReset implements observability.CacheHooks.
func (h *Hooks) OnCacheReset(_ context.Context, scope string, dropped int) {
	h.cacheDropped.WithLabelValues(scope).Add(float64(dropped))
}

// OnLoadComplete implements observability.PipelineHooks.
func (h *Hooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}

// OnBinarizeComplete implements observability.PipelineHooks.
func (h *Hooks) OnBinarizeComplete(_ context.Context, _ string, nodes int, _ time.Duration, err error) {
	h.binarized.WithLabelValues(status(err)).Inc()
	if err == nil {
		h.planNodes.Observe(float64(nodes))
	}
}

// OnRunComplete implements observability.PipelineHooks.
func (h *Hooks) OnRunComplete(_ context.Context, _ int, _ time.Duration, err error) {
	h.runs.WithLabelValues(status(err)).Inc()
}
