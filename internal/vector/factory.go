package vector

import (
	"fmt"

	"github.com/hyperjump/hyoka/internal/transform"
)

// Family names an index family.
type Family string

const (
	// FamilyFlat is exact inner product search.
	FamilyFlat Family = "flat"
	// FamilySQ8 is an 8-bit scalar quantizer over inner product. Requires training.
	FamilySQ8 Family = "sq8"
	// FamilyLSH is sign-bit hashing after random rotation, ranked by Hamming distance.
	FamilyLSH Family = "lsh"
	// FamilyIVFFlat is an inverted file over k-means centroids. Requires training.
	FamilyIVFFlat Family = "ivfflat"
	// FamilyHNSW is a navigable small world graph over inner product.
	FamilyHNSW Family = "hnsw"
)

// Families lists every supported family in a stable order.
func Families() []Family {
	return []Family{FamilyFlat, FamilySQ8, FamilyLSH, FamilyIVFFlat, FamilyHNSW}
}

// Options configures NewIndex. Only the fields of the selected family are read.
type Options struct {
	Family         Family
	Dimensions     int
	NList          int
	NProbe         int
	LSHBits        int
	M              int
	EfConstruction int
	EfSearch       int
	Seed           int64
	KMeansIters    int
}

// DefaultOptions returns options for family with the usual parameters.
func DefaultOptions(family Family, dimensions int) Options {
	return Options{
		Family:         family,
		Dimensions:     dimensions,
		NList:          4,
		NProbe:         1,
		LSHBits:        DefaultLSHBits,
		M:              DefaultHNSWM,
		EfConstruction: DefaultEfConstruction,
		EfSearch:       DefaultEfSearch,
		KMeansIters:    transform.DefaultKMeansIterations,
	}
}

// NewIndex creates an index of the configured family.
// An empty family defaults to flat.
func NewIndex(opts Options) (Index, error) {
	switch opts.Family {
	case FamilyFlat, "":
		return NewFlatIndex(opts.Dimensions)
	case FamilySQ8:
		return NewScalarQuantizerIndex(opts.Dimensions)
	case FamilyLSH:
		bits := opts.LSHBits
		if bits <= 0 {
			bits = DefaultLSHBits
		}
		return NewLSHIndex(opts.Dimensions, bits, opts.Seed)
	case FamilyIVFFlat:
		return NewIVFFlatIndex(opts.Dimensions, opts.NList, opts.NProbe, transform.KMeansOptions{
			Iterations: opts.KMeansIters,
			Seed:       opts.Seed,
		})
	case FamilyHNSW:
		return NewHNSWIndex(opts.Dimensions, HNSWOptions{
			M:              opts.M,
			EfConstruction: opts.EfConstruction,
			EfSearch:       opts.EfSearch,
			Seed:           opts.Seed,
		})
	default:
		return nil, fmt.Errorf("unknown index family: %s (supported: flat, sq8, lsh, ivfflat, hnsw)", opts.Family)
	}
}
