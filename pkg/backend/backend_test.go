package backend

import (
	"slices"
	"testing"

	"github.com/matzehuels/tensorplan/pkg/errors"
)

func TestPermutation(t *testing.T) {
	tests := []struct {
		name    string
		from    []string
		to      []string
		want    []int
		wantErr errors.Code
	}{
		{"identity", []string{"i", "a"}, []string{"i", "a"}, []int{0, 1}, ""},
		{"swap", []string{"i", "j", "a", "b"}, []string{"j", "i", "b", "a"}, []int{1, 0, 3, 2}, ""},
		{"empty", nil, nil, []int{}, ""},
		{"length", []string{"i"}, []string{"i", "a"}, nil, errors.ErrCodeShapeMismatch},
		{"unknown", []string{"i", "a"}, []string{"i", "b"}, nil, errors.ErrCodeShapeMismatch},
		{"repeated target", []string{"i", "a"}, []string{"i", "i"}, nil, errors.ErrCodeShapeMismatch},
		{"repeated source", []string{"i", "i"}, []string{"i", "i"}, nil, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Permutation(tt.from, tt.to)
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Permutation() = %v, want %v", got, tt.want)
			}
		})
	}
}
