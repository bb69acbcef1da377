package transform

import (
	"math"
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestRandomRotate_Deterministic(t *testing.T) {
	vectors := [][]float32{{1, 2, 3, 4}, {-1, 0.5, 0, 2}}
	a, err := RandomRotate(vectors, 0, 3)
	require.NoError(t, err)
	b, err := RandomRotate(vectors, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := RandomRotate(vectors, 1, 3)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	require.Len(t, a[0], 3)
}

func TestRandomRotation_SquareIsOrthogonal(t *testing.T) {
	r, err := NewRandomRotation(5, 5, 42)
	require.NoError(t, err)
	out, err := r.Apply([][]float32{{1, 0, 0, 0, 0}, {0.3, -0.2, 0.9, 0.1, 0.5}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(out[0]), 1e-5)
	assert.InDelta(t, norm([]float32{0.3, -0.2, 0.9, 0.1, 0.5}), norm(out[1]), 1e-5)
}

func TestRandomRotation_GrowingPreservesNorm(t *testing.T) {
	r, err := NewRandomRotation(3, 8, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, r.InputDimensions())
	assert.Equal(t, 8, r.OutputDimensions())
	out, err := r.Apply([][]float32{{0.6, 0.8, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(out[0]), 1e-5)
}

func TestRandomRotation_Errors(t *testing.T) {
	_, err := NewRandomRotation(0, 3, 0)
	assert.ErrorIs(t, err, evalerr.ErrValidation)

	r, err := NewRandomRotation(3, 2, 0)
	require.NoError(t, err)
	_, err = r.Apply([][]float32{{1, 2}})
	assert.ErrorIs(t, err, evalerr.ErrValidation)
}

func TestRandomRotate_DoesNotMutateInput(t *testing.T) {
	vectors := [][]float32{{1, 2, 3}}
	_, err := RandomRotate(vectors, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}}, vectors)
}
