// Package expr defines the symbolic data model consumed by the evaluation
// engine: indices, index spaces, tensors and the expression variants built
// from them.
//
// # Indices and Spaces
//
// An [Index] is a label bound to a typed [Space] (for example "occ" or
// "virt"). Spaces carry the numeric extent used to check leaf data. Labels are
// mapped to spaces by an explicit [Convention] value rather than by global
// state:
//
//	conv := expr.DefaultConvention() // i..n -> occ, a..f -> virt
//	conv.SetExtent("occ", 10)
//	i1, _ := conv.Index("i_1")
//
// # Tensors
//
// A [Tensor] has a label, an ordered bra and ket list of indices, a
// particle [Symmetry] and a [BraKet] relation. Tensors are immutable once
// built and are shared by pointer between expressions and plans.
//
// # Expressions
//
// [Expr] is a closed set of variants: [*Tensor], [*Product], [*Sum] and
// [Constant]. Consumers switch exhaustively on [Expr.Kind]:
//
//	switch e.Kind() {
//	case expr.KindTensor:
//	case expr.KindProduct:
//	case expr.KindSum:
//	case expr.KindConstant:
//	}
//
// Index roles follow the Einstein convention: within a product, a label that
// occurs exactly twice is contracted (a dummy index) and a label that occurs
// once is free. Labels occurring more than twice are malformed.
package expr
