package transform

import (
	"math/rand"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"gonum.org/v1/gonum/mat"
)

// Rotation is a seeded linear map with orthonormal rows (when shrinking) or
// orthonormal columns (when growing).
type Rotation struct {
	in     int
	out    int
	matrix *mat.Dense // out x in
}

// NewRandomRotation builds the map from the QR factorisation of a seeded Gaussian matrix.
// The same seed and dimensions always yield the same matrix, so query and document
// vectors rotated separately stay comparable.
func NewRandomRotation(inputDim, outputDim int, seed int64) (*Rotation, error) {
	if inputDim <= 0 {
		return nil, evalerr.Invalid("input dimension", "must be positive, got %d", inputDim)
	}
	if outputDim <= 0 {
		return nil, evalerr.Invalid("output dimension", "must be positive, got %d", outputDim)
	}
	n := inputDim
	if outputDim > n {
		n = outputDim
	}
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	var qr mat.QR
	qr.Factorize(mat.NewDense(n, n, data))
	var q mat.Dense
	qr.QTo(&q)
	return &Rotation{
		in:     inputDim,
		out:    outputDim,
		matrix: mat.DenseCopyOf(q.Slice(0, outputDim, 0, inputDim)),
	}, nil
}

// InputDimensions returns the expected vector length.
func (r *Rotation) InputDimensions() int { return r.in }

// OutputDimensions returns the rotated vector length.
func (r *Rotation) OutputDimensions() int { return r.out }

// Apply rotates every vector and returns new slices.
func (r *Rotation) Apply(vectors [][]float32) ([][]float32, error) {
	if len(vectors) == 0 {
		return [][]float32{}, nil
	}
	data := make([]float64, 0, len(vectors)*r.in)
	for _, v := range vectors {
		if len(v) != r.in {
			return nil, evalerr.DimensionMismatch("vector", r.in, len(v))
		}
		for _, x := range v {
			data = append(data, float64(x))
		}
	}
	x := mat.NewDense(len(vectors), r.in, data)
	var y mat.Dense
	y.Mul(x, r.matrix.T())

	out := make([][]float32, len(vectors))
	row := make([]float64, r.out)
	for i := range out {
		mat.Row(row, i, &y)
		v := make([]float32, r.out)
		for j, f := range row {
			v[j] = float32(f)
		}
		out[i] = v
	}
	return out, nil
}

// RandomRotate rotates vectors to outputDim with a rotation seeded by seed.
// The input dimension is taken from the first vector.
func RandomRotate(vectors [][]float32, seed int64, outputDim int) ([][]float32, error) {
	if len(vectors) == 0 {
		return [][]float32{}, nil
	}
	r, err := NewRandomRotation(len(vectors[0]), outputDim, seed)
	if err != nil {
		return nil, err
	}
	return r.Apply(vectors)
}
