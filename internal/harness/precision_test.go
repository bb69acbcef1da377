package harness

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/transform"
)

// tableEmbedder returns a fixed vector per known text.
type tableEmbedder map[string][]float32

func (t tableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := t[text]
	if !ok {
		return nil, errors.New("unknown text " + text)
	}
	return v, nil
}

func (t tableEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, s := range texts {
		v, err := t.Embed(ctx, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (t tableEmbedder) Dimensions() int { return 8 }
func (t tableEmbedder) Close() error    { return nil }

func axis(i, dim int, scale float32) []float32 {
	v := make([]float32, dim)
	v[i] = scale
	return v
}

func syntheticItems(labels, perLabel, dim int, seed int64) []LabeledItem {
	r := rand.New(rand.NewSource(seed))
	var items []LabeledItem
	for l := 0; l < labels; l++ {
		for n := 0; n < perLabel; n++ {
			v := axis(l, dim, 0.7)
			for j := range v {
				v[j] += float32(r.NormFloat64() * 0.15)
			}
			items = append(items, LabeledItem{Label: l, Vector: v})
		}
	}
	return items
}

func TestEvaluatePrecision(t *testing.T) {
	embedder := tableEmbedder{
		"a photo of a shirt": axis(0, 8, 1),
		"a photo of a bag":   axis(1, 8, 1),
		"a photo of a boot":  axis(2, 8, 1),
	}
	queries := []string{"a photo of a shirt", "a photo of a bag", "a photo of a boot"}
	items := syntheticItems(3, 12, 8, 1)

	res, err := New().EvaluatePrecision(context.Background(), embedder, queries, items, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.PerLabel) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(res.PerLabel))
	}
	if res.Mean < 0.9 {
		t.Errorf("well separated classes should be retrieved, mean precision %v", res.Mean)
	}
}

func TestPrecision_QuantizedWithinTolerance(t *testing.T) {
	const dim = 8
	items := syntheticItems(3, 12, dim, 2)
	queryVectors := [][]float32{axis(0, dim, 1), axis(1, dim, 1), axis(2, dim, 1)}

	var calibration [][]float32
	for i := 0; i < dim; i++ {
		calibration = append(calibration, axis(i, dim, 1), axis(i, dim, -1))
	}
	q, err := transform.CalibrateInt8(calibration)
	if err != nil {
		t.Fatal(err)
	}
	itemVectors := make([][]float32, len(items))
	for i, it := range items {
		itemVectors[i] = it.Vector
	}
	itemCodes, err := q.Quantize(itemVectors)
	if err != nil {
		t.Fatal(err)
	}
	queryCodes, err := q.Quantize(queryVectors)
	if err != nil {
		t.Fatal(err)
	}
	quantized := make([]LabeledItem, len(items))
	for i, v := range transform.Int8ToFloat32(itemCodes) {
		quantized[i] = LabeledItem{Label: items[i].Label, Vector: v}
	}

	h := New()
	exact, err := h.PrecisionFromVectors(queryVectors, items, 10)
	if err != nil {
		t.Fatal(err)
	}
	approx, err := h.PrecisionFromVectors(transform.Int8ToFloat32(queryCodes), quantized, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(exact.Mean-approx.Mean) > 0.1 {
		t.Errorf("quantized precision %v too far from float precision %v", approx.Mean, exact.Mean)
	}
}

func TestPrecision_Errors(t *testing.T) {
	h := New()
	if _, err := h.PrecisionFromVectors([][]float32{{1}}, nil, 10); !errors.Is(err, evalerr.ErrInsufficientData) {
		t.Errorf("no items: got %v", err)
	}
	items := []LabeledItem{{Label: 0, Vector: []float32{1, 0}}}
	if _, err := h.PrecisionFromVectors([][]float32{{1}}, items, 10); !errors.Is(err, evalerr.ErrValidation) {
		t.Errorf("dimension mismatch: got %v", err)
	}
	res, err := h.PrecisionFromVectors(nil, items, 10)
	if !errors.Is(err, evalerr.ErrInsufficientData) || res != nil {
		t.Errorf("no label query vectors: got %+v, %v", res, err)
	}
	if _, err := h.EvaluatePrecision(context.Background(), tableEmbedder{}, nil, items, 10); !errors.Is(err, evalerr.ErrInsufficientData) {
		t.Errorf("no label queries: got %v", err)
	}
}
