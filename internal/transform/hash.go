package transform

import "strings"

// HashSigns encodes each coordinate as one character: "0" when negative, "1" otherwise.
// Codes of equal length are compared by exact match.
func HashSigns(v []float32) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, x := range v {
		if x < 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// HashAll applies HashSigns to every vector.
func HashAll(vectors [][]float32) []string {
	out := make([]string, len(vectors))
	for i, v := range vectors {
		out[i] = HashSigns(v)
	}
	return out
}

// RotateAndHash rotates vectors and sign-hashes the result.
func RotateAndHash(vectors [][]float32, seed int64, outputDim int) ([]string, error) {
	rotated, err := RandomRotate(vectors, seed, outputDim)
	if err != nil {
		return nil, err
	}
	return HashAll(rotated), nil
}
