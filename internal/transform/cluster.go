package transform

import (
	"sort"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// AssignClusters returns, for each vector, the ids of its k nearest centroids by inner product,
// best first. Equal scores keep centroid order. k larger than the centroid count is clamped.
func AssignClusters(vectors, centroids [][]float32, k int) ([][]int, error) {
	if len(centroids) == 0 {
		return nil, evalerr.Insufficient("centroids", 0, 1)
	}
	if k <= 0 {
		return nil, evalerr.Invalid("centroids per vector", "must be positive, got %d", k)
	}
	if k > len(centroids) {
		k = len(centroids)
	}
	dim := len(centroids[0])
	for _, c := range centroids {
		if len(c) != dim {
			return nil, evalerr.DimensionMismatch("centroid", dim, len(c))
		}
	}

	type scored struct {
		id    int
		score float64
	}
	out := make([][]int, len(vectors))
	buf := make([]scored, len(centroids))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, evalerr.DimensionMismatch("vector", dim, len(v))
		}
		for j, c := range centroids {
			buf[j] = scored{id: j, score: utils.Dot(v, c)}
		}
		sort.SliceStable(buf, func(a, b int) bool { return buf[a].score > buf[b].score })
		ids := make([]int, k)
		for j := range ids {
			ids[j] = buf[j].id
		}
		out[i] = ids
	}
	return out, nil
}
