// Package config loads the TOML run configuration of the tensorplan tool.
//
// A configuration declares the index spaces, how plans are built and
// post-processed, and where leaf tensor data comes from:
//
//	complex = false
//
//	[[space]]
//	name = "occ"
//	prefixes = ["i", "j", "k", "l", "m", "n"]
//	extent = 10
//
//	[[space]]
//	name = "virt"
//	prefixes = ["a", "b", "c", "d", "e", "f"]
//	extent = 20
//
//	[evaluate]
//	post = "antisymmetrize"
//	policy = "independent"
//	fold = "left"
//	concurrent = 4
//
//	[leaves]
//	source = "random"
//	seed = 7
//
// Unset fields take their values from [Default]. Unknown keys are rejected.
package config
