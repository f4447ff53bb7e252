package library

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 2},
			b:    []float32{-1, -2},
			want: -1,
		},
		{
			name: "scaled vectors keep similarity",
			a:    []float32{1, 1},
			b:    []float32{5, 5},
			want: 1,
		},
		{
			name: "mismatched lengths",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2},
			want: 0,
		},
		{
			name: "empty vectors",
			a:    nil,
			b:    nil,
			want: 0,
		},
		{
			name: "zero vector",
			a:    []float32{0, 0, 0},
			b:    []float32{1, 2, 3},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_PartialOverlap(t *testing.T) {
	t.Parallel()

	// 45 degrees apart: cos = 1/sqrt(2).
	got := CosineSimilarity([]float32{1, 0}, []float32{1, 1})
	want := 1 / math.Sqrt2
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("CosineSimilarity = %v, want %v", got, want)
	}
}
