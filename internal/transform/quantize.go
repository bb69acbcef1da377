// Package transform derives new vector collections from existing ones: int8 quantization,
// seeded random rotation, sign hashing, and centroid assignment.
//
// Every function returns fresh slices. Inputs are never modified, so several variants can be
// compared against the same ground truth.
package transform

import (
	"math"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const int8Levels = 255

// Int8Quantizer maps float vectors to int8 with per-dimension ranges learned from a calibration set.
type Int8Quantizer struct {
	starts []float64
	steps  []float64
}

// CalibrateInt8 derives per-dimension minimum and step from calibration.
// The vectors to be quantized later must not be part of calibration.
func CalibrateInt8(calibration [][]float32) (*Int8Quantizer, error) {
	if len(calibration) == 0 {
		return nil, evalerr.Insufficient("calibration vectors", 0, 1)
	}
	dim := len(calibration[0])
	if dim == 0 {
		return nil, evalerr.Invalid("calibration vectors", "zero-length vector")
	}
	data := make([]float64, 0, len(calibration)*dim)
	for _, v := range calibration {
		if len(v) != dim {
			return nil, evalerr.DimensionMismatch("calibration vector", dim, len(v))
		}
		for _, x := range v {
			data = append(data, float64(x))
		}
	}
	m := mat.NewDense(len(calibration), dim, data)
	col := make([]float64, len(calibration))
	q := &Int8Quantizer{
		starts: make([]float64, dim),
		steps:  make([]float64, dim),
	}
	for j := 0; j < dim; j++ {
		mat.Col(col, j, m)
		lo, hi := floats.Min(col), floats.Max(col)
		step := (hi - lo) / int8Levels
		if step == 0 {
			// constant dimension: every value lands in the same bucket
			step = 1
		}
		q.starts[j] = lo
		q.steps[j] = step
	}
	return q, nil
}

// Dimensions returns the calibrated vector length.
func (q *Int8Quantizer) Dimensions() int {
	return len(q.starts)
}

// Quantize maps each vector to int8. Values outside the calibration range saturate.
func (q *Int8Quantizer) Quantize(vectors [][]float32) ([][]int8, error) {
	out := make([][]int8, len(vectors))
	for i, v := range vectors {
		code, err := q.quantizeOne(v)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

func (q *Int8Quantizer) quantizeOne(v []float32) ([]int8, error) {
	if len(v) != len(q.starts) {
		return nil, evalerr.DimensionMismatch("vector", len(q.starts), len(v))
	}
	code := make([]int8, len(v))
	for j, x := range v {
		y := math.Trunc((float64(x)-q.starts[j])/q.steps[j] - 128)
		if y < math.MinInt8 {
			y = math.MinInt8
		} else if y > math.MaxInt8 {
			y = math.MaxInt8
		}
		code[j] = int8(y)
	}
	return code, nil
}

// Dequantize maps codes back to the centre of their calibration bucket.
func (q *Int8Quantizer) Dequantize(codes [][]int8) ([][]float32, error) {
	out := make([][]float32, len(codes))
	for i, c := range codes {
		if len(c) != len(q.starts) {
			return nil, evalerr.DimensionMismatch("code", len(q.starts), len(c))
		}
		v := make([]float32, len(c))
		for j, b := range c {
			v[j] = float32(q.starts[j] + (float64(b)+128+0.5)*q.steps[j])
		}
		out[i] = v
	}
	return out, nil
}

// QuantizeInt8 calibrates on calibration and quantizes vectors in one step.
func QuantizeInt8(vectors, calibration [][]float32) ([][]int8, error) {
	q, err := CalibrateInt8(calibration)
	if err != nil {
		return nil, err
	}
	return q.Quantize(vectors)
}

// Int8ToFloat32 widens codes so float-based scoring can run on them.
func Int8ToFloat32(codes [][]int8) [][]float32 {
	out := make([][]float32, len(codes))
	for i, c := range codes {
		v := make([]float32, len(c))
		for j, b := range c {
			v[j] = float32(b)
		}
		out[i] = v
	}
	return out
}
