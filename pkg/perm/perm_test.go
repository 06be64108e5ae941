package perm

import (
	"slices"
	"testing"
)

func TestSeq(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, []int{}},
		{-3, []int{}},
		{1, []int{0}},
		{4, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		if got := Seq(tt.n); !slices.Equal(got, tt.want) {
			t.Errorf("Seq(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestGenerateDistinct(t *testing.T) {
	for n := 0; n <= 5; n++ {
		perms := Generate(n, -1)
		if len(perms) != Factorial(n) {
			t.Errorf("Generate(%d) returned %d permutations, want %d", n, len(perms), Factorial(n))
		}
		seen := make(map[string]bool)
		for _, p := range perms {
			if !IsPermutation(p) {
				t.Errorf("Generate(%d) produced non-permutation %v", n, p)
			}
			key := string(rune(len(p)))
			for _, v := range p {
				key += string(rune('0' + v))
			}
			if seen[key] {
				t.Errorf("Generate(%d) produced %v twice", n, p)
			}
			seen[key] = true
		}
		if !slices.Equal(perms[0], Seq(n)) {
			t.Errorf("Generate(%d)[0] = %v, want identity", n, perms[0])
		}
	}
}

func TestGenerateSignsBalance(t *testing.T) {
	for n := 2; n <= 5; n++ {
		sum := 0
		for _, p := range Generate(n, -1) {
			sum += Sign(p)
		}
		if sum != 0 {
			t.Errorf("sum of signs over S_%d = %d, want 0", n, sum)
		}
	}
}

func TestParity(t *testing.T) {
	tests := []struct {
		p    []int
		want int
	}{
		{[]int{}, 0},
		{[]int{0}, 0},
		{[]int{1, 0}, 1},
		{[]int{0, 1, 2}, 0},
		{[]int{1, 2, 0}, 0},
		{[]int{2, 1, 0}, 1},
		{[]int{1, 0, 3, 2}, 0},
		{[]int{1, 2, 3, 0}, 1},
	}
	for _, tt := range tests {
		if got := Parity(tt.p); got != tt.want {
			t.Errorf("Parity(%v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestIsPermutation(t *testing.T) {
	tests := []struct {
		p    []int
		want bool
	}{
		{[]int{}, true},
		{[]int{2, 0, 1}, true},
		{[]int{0, 0}, false},
		{[]int{0, 2}, false},
		{[]int{-1, 0}, false},
	}
	for _, tt := range tests {
		if got := IsPermutation(tt.p); got != tt.want {
			t.Errorf("IsPermutation(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestInverse(t *testing.T) {
	for _, p := range Generate(4, -1) {
		q := Inverse(p)
		for i := range p {
			if q[p[i]] != i {
				t.Fatalf("Inverse(%v) = %v", p, q)
			}
		}
		if Sign(q) != Sign(p) {
			t.Errorf("Sign(Inverse(%v)) != Sign(%v)", p, p)
		}
	}
}
