package transform

import (
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrateInt8_Errors(t *testing.T) {
	_, err := CalibrateInt8(nil)
	assert.ErrorIs(t, err, evalerr.ErrInsufficientData)

	_, err = CalibrateInt8([][]float32{{1, 2}, {1}})
	assert.ErrorIs(t, err, evalerr.ErrValidation)
}

func TestInt8Quantizer_Range(t *testing.T) {
	q, err := CalibrateInt8([][]float32{{0, -1}, {255, 1}})
	require.NoError(t, err)
	require.Equal(t, 2, q.Dimensions())

	codes, err := q.Quantize([][]float32{{0, -1}, {255, 1}, {1000, -5}})
	require.NoError(t, err)
	assert.Equal(t, int8(-128), codes[0][0])
	assert.Equal(t, int8(127), codes[1][0])
	assert.Equal(t, int8(-128), codes[0][1])
	// out-of-range values saturate
	assert.Equal(t, int8(127), codes[2][0])
	assert.Equal(t, int8(-128), codes[2][1])

	_, err = q.Quantize([][]float32{{1, 2, 3}})
	assert.ErrorIs(t, err, evalerr.ErrValidation)
}

func TestInt8Quantizer_DoesNotMutateInput(t *testing.T) {
	calibration := [][]float32{{0.1, 0.2}, {0.9, -0.4}}
	vectors := [][]float32{{0.5, 0.0}}
	_, err := QuantizeInt8(vectors, calibration)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.0}}, vectors)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.9, -0.4}}, calibration)
}

func TestInt8Quantizer_DequantizeApproximatesInput(t *testing.T) {
	calibration := [][]float32{{-1, -1, -1}, {1, 1, 1}, {0.2, -0.3, 0.5}}
	q, err := CalibrateInt8(calibration)
	require.NoError(t, err)

	in := [][]float32{{0.25, -0.5, 0.75}}
	codes, err := q.Quantize(in)
	require.NoError(t, err)
	back, err := q.Dequantize(codes)
	require.NoError(t, err)
	step := 2.0 / 255
	for j := range in[0] {
		assert.InDelta(t, in[0][j], back[0][j], 2*step)
	}
}

func TestInt8Quantizer_PreservesDotProductOrder(t *testing.T) {
	docs := [][]float32{
		{0.9, 0.1, 0.0},
		{0.5, 0.5, 0.1},
		{0.0, 0.2, 0.9},
	}
	query := []float32{1, 0, 0}
	q, err := CalibrateInt8([][]float32{{-1, -1, -1}, {1, 1, 1}})
	require.NoError(t, err)

	codes, err := q.Quantize(append([][]float32{query}, docs...))
	require.NoError(t, err)
	wide := Int8ToFloat32(codes)
	var prev float64
	for i := 1; i < len(wide); i++ {
		dot := 0.0
		for j := range wide[0] {
			dot += float64(wide[0][j]) * float64(wide[i][j])
		}
		if i > 1 {
			assert.Less(t, dot, prev, "doc %d should score below doc %d", i-1, i-2)
		}
		prev = dot
	}
}
