// Package perm provides permutation generation and permutation algebra used
// by the evaluator's (anti)symmetrization.
//
// # Overview
//
// Symmetrizing a rank-r result sums r! (or (r!)^2) permuted copies of it.
// This package supplies the pieces:
//
//   - [Generate]: efficient permutation enumeration with optional limits
//   - [Parity] and [Sign]: the sign of a permutation relative to the identity
//   - [Apply] and [Inverse]: rearranging label lists by a permutation
//   - [Factorial]: helper for combinatorial calculations
//
// # Permutation Generation
//
//	// All 24 permutations of 4 elements
//	all := perm.Generate(4, -1)
//
//	// First 100 permutations of 10 elements (for sampling)
//	sample := perm.Generate(10, 100)
//
// # Signs
//
// The sign of a permutation is computed from its cycle decomposition, so it
// does not depend on the order in which [Generate] yields permutations:
//
//	perm.Sign([]int{1, 0, 2}) // -1: a single transposition
//	perm.Sign([]int{1, 2, 0}) // +1: a 3-cycle is two transpositions
package perm
