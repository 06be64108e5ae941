// Package fingerprint computes structural digests of evaluation-plan nodes.
//
// A [Fingerprint] identifies what a node computes, not what it is called:
// two nodes whose computations are identical up to a consistent renaming of
// dummy indices receive the same fingerprint. The cache keys results by
// fingerprint, which is how repeated sub-computations are evaluated once.
//
// # Leaves
//
// A leaf digest covers the tensor label, particle symmetry, bra-ket relation
// and the index space of every slot. The bra-ket relation decides whether a
// tensor and its bra/ket transpose share a fingerprint:
//
//	relation     Config.Complex=false   Config.Complex=true
//	distinct     differ                 differ
//	symmetric    equal                  equal
//	conjugate    equal                  differ
//
// # Internal Nodes
//
// Product and sum digests combine the operand fingerprints with a positional
// topology (which slots are contracted, where each output slot comes from,
// how sum operands align and are weighted). Topologies are expressed in slot
// positions, never labels.
//
// Digests are SHA-256 over a JSON encoding of the fields, the same content
// keying scheme used for cache keys throughout the module.
package fingerprint
