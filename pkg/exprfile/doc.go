// Package exprfile reads and writes expression documents.
//
// Expressions are described structurally in YAML; tensor notation is not
// parsed. Index labels are resolved to spaces through an
// [expr.Convention] when a node is built:
//
//	name: ccd
//	equations:
//	  - name: r2
//	    bra: [i_1, i_2]
//	    ket: [a_1, a_2]
//	    post: antisymmetrize
//	    expr:
//	      sum:
//	        - tensor: {label: g, bra: [i_1, i_2], ket: [a_1, a_2], symmetry: antisymm}
//	        - product:
//	            scalar: 0.5
//	            factors:
//	              - tensor: {label: g, bra: [i_1, i_2], ket: [a_3, a_4], symmetry: antisymm}
//	              - tensor: {label: t, bra: [a_3, a_4], ket: [a_1, a_2], symmetry: antisymm}
//
// The optional leaves map names, per tensor label, a data file relative to
// the configured leaf directory.
package exprfile
