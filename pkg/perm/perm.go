package perm

import "slices"

// Seq returns a slice containing the sequence [0, 1, 2, ..., n-1].
// This is useful for initializing permutation arrays or creating index sequences.
//
// For n <= 0, Seq returns an empty slice.
func Seq(n int) []int {
	if n <= 0 {
		return []int{}
	}
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

// Factorial returns n! (n factorial), the product 1 × 2 × ... × n.
// For n <= 1, Factorial returns 1.
//
// Note that factorials grow extremely fast: 13! = 6,227,020,800 exceeds 32-bit int.
func Factorial(n int) int {
	result := 1
	for i := 2; i <= n; i++ {
		result *= i
	}
	return result
}

// Generate returns permutations of [0, 1, ..., n-1] using Heap's algorithm.
//
// If limit > 0, Generate returns at most limit permutations.
// If limit <= 0, Generate returns all n! permutations.
//
// Each returned slice is a separate allocation, safe to modify without affecting others.
//
// Generate handles edge cases gracefully:
//   - n = 0: returns [[]] (one empty permutation)
//   - n = 1: returns [[0]] (one single-element permutation)
//
// The first permutation is always the identity. Heap's algorithm produces the
// remaining permutations in a non-lexicographic order, each exactly once, and
// consecutive permutations differ by a single transposition.
func Generate(n, limit int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	if n == 1 {
		return [][]int{{0}}
	}

	perm := Seq(n)
	state := make([]int, n)

	capacity := limit
	if capacity <= 0 || n <= 12 {
		capacity = Factorial(min(n, 12))
	}
	result := make([][]int, 0, capacity)
	result = append(result, slices.Clone(perm))

	for i := 0; i < n && (limit <= 0 || len(result) < limit); {
		if state[i] < i {
			if i&1 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[state[i]], perm[i] = perm[i], perm[state[i]]
			}
			result = append(result, slices.Clone(perm))
			state[i]++
			i = 0
		} else {
			state[i] = 0
			i++
		}
	}
	return result
}

// IsPermutation reports whether p is a permutation of [0, len(p)).
func IsPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Parity returns 0 for an even permutation and 1 for an odd one.
//
// It counts cycles: a permutation of n elements with c cycles is a product
// of n-c transpositions. p must satisfy IsPermutation.
func Parity(p []int) int {
	visited := make([]bool, len(p))
	transpositions := 0
	for start := range p {
		if visited[start] {
			continue
		}
		length := 0
		for j := start; !visited[j]; j = p[j] {
			visited[j] = true
			length++
		}
		transpositions += length - 1
	}
	return transpositions & 1
}

// Sign returns +1 for an even permutation and -1 for an odd one.
func Sign(p []int) int {
	if Parity(p) == 0 {
		return 1
	}
	return -1
}

// Apply returns the elements of xs rearranged by p: result[i] = xs[p[i]].
// xs is not modified.
func Apply[T any](p []int, xs []T) []T {
	out := make([]T, len(p))
	for i, j := range p {
		out[i] = xs[j]
	}
	return out
}

// Inverse returns the inverse permutation q with q[p[i]] = i.
func Inverse(p []int) []int {
	q := make([]int, len(p))
	for i, j := range p {
		q[j] = i
	}
	return q
}
