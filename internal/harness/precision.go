package harness

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/embedding"
	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// LabeledItem is a retrievable item with its class label, e.g. an encoded image.
type LabeledItem struct {
	Label  int
	Vector []float32
}

// PrecisionResult is precision@k per class label and its mean.
type PrecisionResult struct {
	K        int       `json:"k"`
	PerLabel []float64 `json:"per_label"`
	Mean     float64   `json:"mean_precision"`
}

// EvaluatePrecision embeds one query text per class label (labelQueries[i] describes
// label i), ranks every item by cosine against it, and reports precision@k.
func (h *Harness) EvaluatePrecision(ctx context.Context, e embedding.Embedder, labelQueries []string, items []LabeledItem, k int) (*PrecisionResult, error) {
	if len(labelQueries) == 0 {
		return nil, evalerr.Insufficient("label queries", 0, 1)
	}
	queryVectors, err := e.EmbedBatch(ctx, labelQueries)
	if err != nil {
		return nil, fmt.Errorf("embed label queries: %w", err)
	}
	return h.PrecisionFromVectors(queryVectors, items, k)
}

// PrecisionFromVectors is EvaluatePrecision with query vectors already computed.
func (h *Harness) PrecisionFromVectors(queryVectors [][]float32, items []LabeledItem, k int) (*PrecisionResult, error) {
	if len(items) == 0 {
		return nil, evalerr.Insufficient("items", 0, 1)
	}
	if len(queryVectors) == 0 {
		return nil, evalerr.Insufficient("label query vectors", 0, 1)
	}
	labels := make([]int, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}
	result := &PrecisionResult{K: k, PerLabel: make([]float64, len(queryVectors))}
	scores := make([]float64, len(items))
	for label, q := range queryVectors {
		for i, it := range items {
			if len(it.Vector) != len(q) {
				return nil, evalerr.DimensionMismatch(fmt.Sprintf("item %d", i), len(q), len(it.Vector))
			}
			scores[i] = utils.Cosine(q, it.Vector)
		}
		p, err := metrics.PrecisionAtKByScore(labels, scores, label, k)
		if err != nil {
			return nil, err
		}
		result.PerLabel[label] = p
		result.Mean += p
	}
	result.Mean /= float64(len(queryVectors))
	h.logger.Info("Precision evaluated", zap.Int("labels", len(queryVectors)), zap.Int("k", k), zap.Float64("mean_precision", result.Mean))
	return result, nil
}
