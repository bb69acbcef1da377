package vector

import (
	"context"
	"sync"
)

// FlatIndex is an exact brute-force inner product index.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an exact index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if err := checkPositive("dimensions", dimensions); err != nil {
		return nil, err
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Family returns FamilyFlat.
func (f *FlatIndex) Family() Family { return FamilyFlat }

// Add appends copies of vectors.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("vector", f.dimensions, vectors); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, copyVectors(vectors)...)
	return nil
}

// Search scores every stored vector by inner product.
func (f *FlatIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if err := checkK(k); err != nil {
		return nil, nil, err
	}
	if err := checkDimensions("query", f.dimensions, queries); err != nil {
		return nil, nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	scores := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))
	cands := make([]candidate, len(f.vectors))
	for qi, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for i, v := range f.vectors {
			cands[i] = candidate{pos: int64(i), score: InnerProduct(q, v)}
		}
		scores[qi], positions[qi] = topK(cands, k, false)
	}
	return scores, positions, nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int { return f.dimensions }
