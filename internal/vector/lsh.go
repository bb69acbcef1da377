package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/hyoka/internal/transform"
)

// DefaultLSHBits is the code length used when none is configured.
const DefaultLSHBits = 96

// LSHIndex hashes vectors to sign bits after a seeded random rotation and
// ranks by Hamming distance.
type LSHIndex struct {
	dimensions int
	rotation   *transform.Rotation
	codes      [][]uint64
	mu         sync.RWMutex
}

// NewLSHIndex creates an LSH index producing nbits-bit codes.
func NewLSHIndex(dimensions, nbits int, seed int64) (*LSHIndex, error) {
	if err := checkPositive("dimensions", dimensions); err != nil {
		return nil, err
	}
	if err := checkPositive("nbits", nbits); err != nil {
		return nil, err
	}
	rot, err := transform.NewRandomRotation(dimensions, nbits, seed)
	if err != nil {
		return nil, err
	}
	return &LSHIndex{dimensions: dimensions, rotation: rot}, nil
}

// Family returns FamilyLSH.
func (l *LSHIndex) Family() Family { return FamilyLSH }

// ReturnsDistance is true: scores are Hamming distances.
func (l *LSHIndex) ReturnsDistance() bool { return true }

// Bits returns the code length.
func (l *LSHIndex) Bits() int { return l.rotation.OutputDimensions() }

func (l *LSHIndex) encode(vectors [][]float32) ([][]uint64, error) {
	rotated, err := l.rotation.Apply(vectors)
	if err != nil {
		return nil, err
	}
	codes := make([][]uint64, len(rotated))
	for i, v := range rotated {
		codes[i] = packSigns(v)
	}
	return codes, nil
}

// Add hashes and stores vectors.
func (l *LSHIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("vector", l.dimensions, vectors); err != nil {
		return err
	}
	codes, err := l.encode(vectors)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.codes = append(l.codes, codes...)
	l.mu.Unlock()
	return nil
}

// Search returns Hamming distances, closest first.
func (l *LSHIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if err := checkK(k); err != nil {
		return nil, nil, err
	}
	if err := checkDimensions("query", l.dimensions, queries); err != nil {
		return nil, nil, err
	}
	qcodes, err := l.encode(queries)
	if err != nil {
		return nil, nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	scores := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))
	cands := make([]candidate, len(l.codes))
	for qi, q := range qcodes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		for i, c := range l.codes {
			cands[i] = candidate{pos: int64(i), score: float32(Hamming(q, c))}
		}
		scores[qi], positions[qi] = topK(cands, k, true)
	}
	return scores, positions, nil
}

// Size returns the number of stored codes.
func (l *LSHIndex) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.codes)
}

// Dimensions returns the input vector dimension.
func (l *LSHIndex) Dimensions() int { return l.dimensions }
