// Package plan converts n-ary tensor expressions into binary evaluation
// plans.
//
// # Binarization
//
// [Binarize] turns a flat expression such as
//
//	0.5 * g{i_3,i_4;a_3,a_4} * t{i_1,i_3;a_1,a_3} * t{i_2,i_4;a_2,a_4}
//
// into a tree of pairwise operations:
//
//	*
//	├── *
//	│   ├── g{i_3,i_4;a_3,a_4}
//	│   └── t{i_1,i_3;a_1,a_3}
//	└── t{i_2,i_4;a_2,a_4}
//
// The order of pairwise combination comes from a [Folder]; [LeftFold] is the
// default and [BalancedFold] is available. Constant factors fold into the
// product's scale.
//
// # Nodes
//
// A [Plan] is an arena of [Node] values addressed by [NodeID]. Every node
// records its [Layout] (the positional bra/ket order of its value), a
// scalar prefactor and a structural fingerprint. Values are cached unscaled
// and parents apply their operands' scalars, so nodes that differ only in
// scale share a fingerprint.
//
// Product layouts are the free bra indices of the left operand followed by
// those of the right, and likewise for the ket. Sum layouts follow the left
// operand; the right operand is aligned by label.
//
// # Inspection
//
// [Plan.Cost] estimates operation counts with and without fingerprint
// sharing, [Plan.String] prints an indented tree and [Plan.ToDOT] /
// [Plan.RenderSVG] draw the plan with Graphviz.
package plan
