package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/hyoka/internal/transform"
)

// ScalarQuantizerIndex stores 8-bit codes and scores queries against their reconstructions.
type ScalarQuantizerIndex struct {
	dimensions int
	quantizer  *transform.Int8Quantizer
	codes      [][]int8
	decoded    [][]float32
	mu         sync.RWMutex
}

// NewScalarQuantizerIndex creates an untrained 8-bit scalar quantizer index.
func NewScalarQuantizerIndex(dimensions int) (*ScalarQuantizerIndex, error) {
	if err := checkPositive("dimensions", dimensions); err != nil {
		return nil, err
	}
	return &ScalarQuantizerIndex{dimensions: dimensions}, nil
}

// Family returns FamilySQ8.
func (s *ScalarQuantizerIndex) Family() Family { return FamilySQ8 }

// Train learns per-dimension ranges from vectors.
func (s *ScalarQuantizerIndex) Train(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("training vector", s.dimensions, vectors); err != nil {
		return err
	}
	q, err := transform.CalibrateInt8(vectors)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.quantizer = q
	s.mu.Unlock()
	return nil
}

// IsTrained reports whether Train succeeded.
func (s *ScalarQuantizerIndex) IsTrained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantizer != nil
}

// Add encodes vectors with the trained quantizer.
func (s *ScalarQuantizerIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("vector", s.dimensions, vectors); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quantizer == nil {
		return notTrained(FamilySQ8)
	}
	codes, err := s.quantizer.Quantize(vectors)
	if err != nil {
		return err
	}
	decoded, err := s.quantizer.Dequantize(codes)
	if err != nil {
		return err
	}
	s.codes = append(s.codes, codes...)
	s.decoded = append(s.decoded, decoded...)
	return nil
}

// Search scores float queries against decoded codes by inner product.
func (s *ScalarQuantizerIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if err := checkK(k); err != nil {
		return nil, nil, err
	}
	if err := checkDimensions("query", s.dimensions, queries); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.quantizer == nil {
		return nil, nil, notTrained(FamilySQ8)
	}
	scores := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))
	cands := make([]candidate, len(s.decoded))
	for qi, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for i, v := range s.decoded {
			cands[i] = candidate{pos: int64(i), score: InnerProduct(q, v)}
		}
		scores[qi], positions[qi] = topK(cands, k, false)
	}
	return scores, positions, nil
}

// Codes returns the stored 8-bit codes in insertion order.
func (s *ScalarQuantizerIndex) Codes() [][]int8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codes
}

// Size returns the number of stored codes.
func (s *ScalarQuantizerIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// Dimensions returns the vector dimension.
func (s *ScalarQuantizerIndex) Dimensions() int { return s.dimensions }
