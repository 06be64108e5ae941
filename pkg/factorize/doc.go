// Package factorize finds contraction work shared between two expressions.
//
// # Networks
//
// A product of tensors is a tensor network: every factor is a vertex and
// every dummy index joins the two factors it appears in. [NewNetwork] builds
// this graph with vertices labeled by the factor's leaf fingerprint and
// edges labeled by the pair of slots the dummy index occupies, so index
// names never matter:
//
//	t{i_1,i_2;a_1,a_2} g{i_1,i_3;a_1,a_3}
//
// has one edge t→g carrying the bonds (0,0) and (2,2).
//
// # Common subnetworks
//
// [LargestCommonSubnet] returns the largest set of factor pairs whose
// induced subnetworks are isomorphic, including the absence of edges between
// matched factors. The match need not be connected. Single-factor matches
// are not reported: a lone tensor is already shared through its leaf
// fingerprint. Among matches of maximum size the lexicographically smallest
// sequence of (position in a, position in b) pairs wins.
//
// [LargestCommonSummands] does the same for sums, matching summands whose
// evaluation plans have equal fingerprints.
//
// # Factoring
//
// [Factor] rewrites two products so their common subnetwork becomes a nested
// product in both. The nested products binarize to equal fingerprints, so an
// evaluator sharing one cache between both plans computes the common part
// once.
package factorize
