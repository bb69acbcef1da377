package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync/atomic"

	"github.com/hyperjump/hyoka/pkg/utils"
)

// MockEmbedder stands in for a text encoder. Each text seeds a Gaussian draw
// from its FNV-1a hash, so equal texts map to the same unit vector and
// unrelated texts are close to orthogonal.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
}

// NewMockEmbedder returns a MockEmbedder producing vectors of the given length (384 when not positive).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.encode(text), nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.encode(text)
	}
	return out, nil
}

func (e *MockEmbedder) encode(text string) []float32 {
	e.calls.Add(1)
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	v := make([]float32, e.dimensions)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	utils.NormalizeL2(v)
	return v
}

// Calls returns how many texts have been encoded.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *MockEmbedder) Close() error {
	return nil
}
