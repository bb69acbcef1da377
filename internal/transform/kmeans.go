package transform

import (
	"math"
	"math/rand"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// DefaultKMeansIterations bounds Lloyd iterations when KMeansOptions.Iterations is zero.
const DefaultKMeansIterations = 25

// KMeansOptions configures TrainKMeans.
type KMeansOptions struct {
	Iterations int
	Seed       int64
	// Spherical L2-normalises centroids after every update and implies InnerProduct.
	Spherical bool
	// InnerProduct assigns points to the centroid with the largest dot product
	// instead of the smallest squared L2 distance.
	InnerProduct bool
}

// TrainKMeans clusters vectors into k centroids with Lloyd's algorithm.
// Initial centroids are a seeded sample of distinct input vectors.
func TrainKMeans(vectors [][]float32, k int, opts KMeansOptions) ([][]float32, error) {
	if k <= 0 {
		return nil, evalerr.Invalid("centroids", "must be positive, got %d", k)
	}
	n := len(vectors)
	if n < k {
		return nil, evalerr.Insufficient("training vectors", n, k)
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, evalerr.DimensionMismatch("training vector", dim, len(v))
		}
	}
	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = DefaultKMeansIterations
	}
	innerProduct := opts.InnerProduct || opts.Spherical

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(n)
	centroids := make([][]float32, k)
	for j := range centroids {
		centroids[j] = append([]float32(nil), vectors[perm[j]]...)
		if opts.Spherical {
			utils.NormalizeL2(centroids[j])
		}
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	counts := make([]int, k)

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearest(v, centroids, innerProduct)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for j := range sums {
			for d := range sums[j] {
				sums[j][d] = 0
			}
			counts[j] = 0
		}
		for i, v := range vectors {
			c := assignments[i]
			for d, x := range v {
				sums[c][d] += float64(x)
			}
			counts[c]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				// reseed an empty cluster from a random point
				centroids[j] = append(centroids[j][:0], vectors[rng.Intn(n)]...)
			} else {
				for d := range centroids[j] {
					centroids[j][d] = float32(sums[j][d] / float64(counts[j]))
				}
			}
			if opts.Spherical {
				utils.NormalizeL2(centroids[j])
			}
		}
	}
	return centroids, nil
}

func nearest(v []float32, centroids [][]float32, innerProduct bool) int {
	best := 0
	bestScore := math.Inf(-1)
	for j, c := range centroids {
		var s float64
		if innerProduct {
			s = utils.Dot(v, c)
		} else {
			s = -squaredL2(v, c)
		}
		if s > bestScore {
			bestScore = s
			best = j
		}
	}
	return best
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
