package metrics

import (
	"math"
	"testing"
)

func TestPrecisionAtK(t *testing.T) {
	tests := []struct {
		name   string
		ranked []int
		k      int
		want   float64
	}{
		{"all match", []int{3, 3, 3}, 3, 1},
		{"half", []int{3, 1, 3, 2}, 4, 0.5},
		{"only top k counted", []int{1, 1, 3, 3}, 2, 0},
		{"short list divides by k", []int{3}, 4, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrecisionAtK(tt.ranked, 3, tt.k)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > eps {
				t.Errorf("PrecisionAtK = %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := PrecisionAtK([]int{1}, 1, 0); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestPrecisionAtKByScore(t *testing.T) {
	labels := []string{"bag", "coat", "bag", "coat"}
	scores := []float64{0.1, 0.9, 0.8, 0.9}
	got, err := PrecisionAtKByScore(labels, scores, "coat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("PrecisionAtKByScore = %v, want 1", got)
	}
}
