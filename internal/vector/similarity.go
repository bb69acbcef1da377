package vector

import "math/bits"

// InnerProduct returns the dot product of two equal-length vectors in float32 arithmetic.
func InnerProduct(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// packSigns packs the sign bits of v (1 for x >= 0) into 64-bit words.
func packSigns(v []float32) []uint64 {
	words := make([]uint64, (len(v)+63)/64)
	for i, x := range v {
		if x >= 0 {
			words[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return words
}

// Hamming counts differing bits between two packed codes of equal length.
func Hamming(a, b []uint64) int {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] ^ b[i])
	}
	return n
}
