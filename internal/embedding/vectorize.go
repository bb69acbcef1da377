package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/hyoka/internal/models"
)

// DefaultBatchSize is the number of texts sent to the embedder per call.
const DefaultBatchSize = 64

// Vectorize encodes texts, sending each distinct text to e once. The result is
// aligned with texts.
func Vectorize(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	slot := make(map[string]int, len(texts))
	var unique []string
	for _, t := range texts {
		if _, ok := slot[t]; !ok {
			slot[t] = len(unique)
			unique = append(unique, t)
		}
	}

	encoded := make([][]float32, 0, len(unique))
	for start := 0; start < len(unique); start += batchSize {
		end := min(start+batchSize, len(unique))
		batch, err := e.EmbedBatch(ctx, unique[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(batch))
		}
		encoded = append(encoded, batch...)
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = encoded[slot[t]]
	}
	return out, nil
}

// VectorizeRows returns a copy of rows with query_vector and title_vector filled in.
func VectorizeRows(ctx context.Context, e Embedder, rows []models.Row, batchSize int) ([]models.Row, error) {
	queries := make([]string, len(rows))
	titles := make([]string, len(rows))
	for i := range rows {
		queries[i] = rows[i].Query
		titles[i] = rows[i].ProductTitle
	}
	qv, err := Vectorize(ctx, e, queries, batchSize)
	if err != nil {
		return nil, fmt.Errorf("vectorize queries: %w", err)
	}
	tv, err := Vectorize(ctx, e, titles, batchSize)
	if err != nil {
		return nil, fmt.Errorf("vectorize titles: %w", err)
	}
	out := make([]models.Row, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].QueryVector = qv[i]
		out[i].TitleVector = tv[i]
	}
	return out, nil
}
