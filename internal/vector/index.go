// Package vector provides in-process ANN index families behind one interface.
//
// Every family stores vectors in insertion order and reports hits as positions
// into that order. Search returns [len(queries)][k] matrices; slots without a
// result hold position -1.
package vector

import (
	"context"
	"math"
	"sort"

	"github.com/hyperjump/hyoka/internal/evalerr"
)

// Index is an ANN index over fixed-dimension float vectors.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, queries [][]float32, k int) (scores [][]float32, positions [][]int64, err error)
	Size() int
	Dimensions() int
	Family() Family
}

// Trainer is implemented by families that must see training vectors before Add.
type Trainer interface {
	Train(ctx context.Context, vectors [][]float32) error
	IsTrained() bool
}

// distanceReporter is implemented by families whose scores are distances (lower is closer).
type distanceReporter interface {
	ReturnsDistance() bool
}

// ReturnsDistance reports whether idx scores by distance rather than similarity.
func ReturnsDistance(idx Index) bool {
	d, ok := idx.(distanceReporter)
	return ok && d.ReturnsDistance()
}

// NeedsTraining reports whether idx must be trained before vectors are added.
func NeedsTraining(idx Index) bool {
	t, ok := idx.(Trainer)
	return ok && !t.IsTrained()
}

type candidate struct {
	pos   int64
	score float32
}

// topK orders candidates best first (stable on ties) and pads to k with position -1.
// ascending selects distance semantics.
func topK(cands []candidate, k int, ascending bool) ([]float32, []int64) {
	sort.SliceStable(cands, func(i, j int) bool {
		if ascending {
			return cands[i].score < cands[j].score
		}
		return cands[i].score > cands[j].score
	})
	pad := float32(-math.MaxFloat32)
	if ascending {
		pad = math.MaxFloat32
	}
	scores := make([]float32, k)
	positions := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(cands) {
			scores[i] = cands[i].score
			positions[i] = cands[i].pos
			continue
		}
		scores[i] = pad
		positions[i] = -1
	}
	return scores, positions
}

func checkDimensions(field string, dim int, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != dim {
			return evalerr.DimensionMismatch(field, dim, len(v))
		}
	}
	return nil
}

func checkPositive(field string, v int) error {
	if v <= 0 {
		return evalerr.Invalid(field, "must be positive, got %d", v)
	}
	return nil
}

func checkK(k int) error {
	return checkPositive("k", k)
}

func copyVectors(vectors [][]float32) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		out[i] = append([]float32(nil), v...)
	}
	return out
}

func notTrained(f Family) error {
	return evalerr.Invalid("index", "%s index must be trained before use", f)
}
