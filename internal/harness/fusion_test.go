package harness

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
)

func TestEvaluateFusion(t *testing.T) {
	// a ranks the exact match first, b ranks it last.
	a := []models.Row{
		row("q1", "x", models.LabelExact, models.SplitTest, []float32{1, 0}, []float32{1, 0}),
		row("q1", "y", models.LabelIrrelevant, models.SplitTest, []float32{1, 0}, []float32{1, 1}),
		row("q1", "z", models.LabelIrrelevant, models.SplitTest, []float32{1, 0}, []float32{0, 1}),
	}
	b := []models.Row{
		row("q1", "x", models.LabelExact, models.SplitTest, []float32{1, 0}, []float32{0, 1}),
		row("q1", "y", models.LabelIrrelevant, models.SplitTest, []float32{1, 0}, []float32{1, 0}),
		row("q1", "z", models.LabelIrrelevant, models.SplitTest, []float32{1, 0}, []float32{1, 1}),
	}
	results, err := New().EvaluateFusion(a, b, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	names := results[0].Name + "," + results[1].Name + "," + results[2].Name
	if names != "a,b,rrf" {
		t.Errorf("names = %s", names)
	}
	if results[0].MeanNDCG != 1 {
		t.Errorf("a nDCG = %v, want 1", results[0].MeanNDCG)
	}
	if want := 0.5; math.Abs(results[1].MeanNDCG-want) > 1e-9 {
		t.Errorf("b nDCG = %v, want %v", results[1].MeanNDCG, want)
	}
	// Fused ranks: x 1+3, y 2+1, z 3+2. y is fused first, x second.
	if want := 1 / math.Log2(3); math.Abs(results[2].MeanNDCG-want) > 1e-9 {
		t.Errorf("rrf nDCG = %v, want %v", results[2].MeanNDCG, want)
	}
}

func TestEvaluateFusion_Errors(t *testing.T) {
	a := []models.Row{row("q1", "x", models.LabelExact, models.SplitTest, []float32{1, 0}, []float32{1, 0})}
	b := []models.Row{row("q1", "other", models.LabelExact, models.SplitTest, []float32{1, 0}, []float32{1, 0})}
	if _, err := New().EvaluateFusion(a, b, 10); !errors.Is(err, evalerr.ErrValidation) {
		t.Errorf("mismatched pairs: err = %v", err)
	}
	if _, err := New().EvaluateFusion(a, nil, 10); !errors.Is(err, evalerr.ErrValidation) {
		t.Errorf("mismatched lengths: err = %v", err)
	}
	if _, err := New().EvaluateFusion(nil, nil, 10); !errors.Is(err, evalerr.ErrInsufficientData) {
		t.Errorf("empty: err = %v", err)
	}
}
