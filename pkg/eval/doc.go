// Package eval executes binarized plans against a numeric backend.
//
// # Overview
//
// An [Evaluator] combines three collaborators:
//
//   - a [backend.Backend] that performs the arithmetic,
//   - a [cache.Cache] that memoizes node values by fingerprint,
//   - a [leaf.Yielder] that supplies leaf tensor data.
//
// Evaluate walks a plan bottom-up with an explicit stack. Each node is
// looked up in the cache first, so a contraction shared between branches
// of one plan, or between plans evaluated against the same cache, is
// computed once:
//
//	ev := eval.New[*dense.Tensor](dense.Backend{}, cache.NewManager[*dense.Tensor](), yielder,
//		eval.WithConvention(conv))
//	res, err := ev.Evaluate(ctx, p)
//
// # Scalars
//
// Cached values are unscaled. Product nodes contract their operands as
// stored; sum nodes combine them with the weights recorded in the plan; the
// plan's root scalar is applied to the final result only. Backends work in
// real arithmetic, so complex scalars are rejected with COMPLEX_NARROWING.
//
// # Post-processing
//
// [Evaluator.Symmetrize] and [Evaluator.Antisymmetrize] sum permuted copies
// of a result. A [Policy] chooses which labels are permuted, and the sign of
// an antisymmetrized term is the parity of its permutation of the whole
// output index list.
//
// # Failure
//
// Errors abort the evaluation and leave intermediates in the cache; call
// ResetAll before retrying. Claims held on a [cache.Shared] are released so
// concurrent evaluations waiting on them can proceed.
package eval
