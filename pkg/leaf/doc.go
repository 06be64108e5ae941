// Package leaf supplies numeric data for the leaf tensors of a plan.
//
// The evaluator asks a [Yielder] for every leaf it cannot find in its cache.
// Yielders receive the leaf tensor in the orientation the binarizer chose
// and return a value whose modes follow the tensor's bra indices and then
// its ket indices.
//
// Leaves are identified by their descriptor, [Key], which combines the
// tensor label with the space of every slot:
//
//	g{i,j;a,b}  ->  "g{occ,occ;virt,virt}"
//
// # Sources
//
//   - [Registry]: an in-memory table, mostly for tests and small inputs.
//   - [Slicer]: cuts space blocks out of full-range tensors such as those
//     read by [LoadDat].
//   - [Random]: reproducible random data sized by a convention.
//   - [FileStore] and [RedisStore]: persistent stores of encoded tensors,
//     the latter shared between processes.
//
// [Chain] combines sources, falling through on MISSING_LEAF.
package leaf
