// Package pkg provides the core libraries for tensorplan.
//
// # Overview
//
// Tensorplan evaluates tensor network expressions: sums and scaled products
// of labeled tensors whose indices belong to named index spaces. Each
// expression is turned into a binary evaluation plan whose nodes carry a
// structural fingerprint, so subexpressions that are equal up to index
// renaming are computed once and reused from a cache.
//
// # Architecture
//
// The typical data flow:
//
//	YAML equation document
//	         ↓
//	    [exprfile] package (decode equations)
//	         ↓
//	    [expr] package (tensors, products, sums, index spaces)
//	         ↓
//	    [plan] package (binarize, fingerprint every node)
//	         ↓
//	    [eval] package (walk plans against a [cache] and a [backend])
//	         ↓
//	    reordered or (anti)symmetrized result tensors
//
// # Quick Start
//
// Build, binarize and evaluate an expression:
//
//	conv := expr.DefaultConvention()
//	g := conv.MustTensor("g", []string{"i_1", "i_2"}, []string{"a_1", "a_2"})
//	t := conv.MustTensor("t", []string{"a_1", "a_2"}, []string{"i_1", "i_2"})
//	p, _ := plan.Binarize(expr.NewProduct(0.25, g, t))
//
//	ev := eval.New[*dense.Tensor](dense.Backend{}, cache.NewManager[*dense.Tensor](),
//	    leaf.NewRandom(conv, 42), eval.WithConvention(conv))
//	res, _ := ev.Evaluate(ctx, p)
//
// # Main Packages
//
// ## Core
//
// [expr] - Expression trees, index spaces and the label convention.
//
// [fingerprint] - Structural hashing invariant under index renaming.
//
// [plan] - Binarization into evaluation plans, cost estimates, DOT output.
//
// [cache] - Fingerprint-keyed caches with persistent and decaying entries.
//
// [eval] - Plan evaluation, reordering and (anti)symmetrization.
//
// [factorize] - Largest common subnetworks of products and sums.
//
// ## Data
//
// [backend] - The tensor algebra interface, with a dense float64
// implementation in backend/dense.
//
// [leaf] - Leaf tensor sources: random data, .dat files, file and Redis
// stores.
//
// ## Orchestration
//
// [config] - TOML run configuration.
//
// [exprfile] - YAML equation documents.
//
// [pipeline] - Load, plan, evaluate and post-process a document.
//
// [observability] - Hooks for metrics and tracing, with a Prometheus
// implementation in observability/promhooks.
//
// [perm] - Permutation enumeration and parity.
//
// [buildinfo] - Version information set at build time.
package pkg
