// Package dense is an in-memory float64 implementation of backend.Backend.
//
// Tensors are stored row-major with explicit strides. Contractions without
// Hadamard modes are lowered to a single matrix product through gonum/mat;
// permutations and accumulation are strided copies followed by gonum/floats
// kernels.
//
//	b := dense.Backend{}
//	g := dense.New(10, 10, 20, 20)
//	t := dense.New(20, 20, 10, 10)
//	e, err := b.Contract(1, g, []string{"i", "j", "a", "b"},
//		t, []string{"a", "b", "i", "j"}, nil)
package dense
