package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/hyoka/internal/transform"
)

// IVFFlatIndex partitions vectors into nlist inverted lists by nearest centroid
// and scans the nprobe closest lists per query.
type IVFFlatIndex struct {
	dimensions int
	nlist      int
	nprobe     int
	kmeans     transform.KMeansOptions
	centroids  [][]float32
	lists      [][]int64
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewIVFFlatIndex creates an untrained IVF index.
func NewIVFFlatIndex(dimensions, nlist, nprobe int, kmeans transform.KMeansOptions) (*IVFFlatIndex, error) {
	if err := checkPositive("dimensions", dimensions); err != nil {
		return nil, err
	}
	if err := checkPositive("nlist", nlist); err != nil {
		return nil, err
	}
	if err := checkPositive("nprobe", nprobe); err != nil {
		return nil, err
	}
	kmeans.InnerProduct = true
	return &IVFFlatIndex{dimensions: dimensions, nlist: nlist, nprobe: nprobe, kmeans: kmeans}, nil
}

// Family returns FamilyIVFFlat.
func (f *IVFFlatIndex) Family() Family { return FamilyIVFFlat }

// Train learns nlist centroids from vectors.
func (f *IVFFlatIndex) Train(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("training vector", f.dimensions, vectors); err != nil {
		return err
	}
	centroids, err := transform.TrainKMeans(vectors, f.nlist, f.kmeans)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.centroids = centroids
	f.lists = make([][]int64, len(centroids))
	f.mu.Unlock()
	return nil
}

// IsTrained reports whether centroids exist.
func (f *IVFFlatIndex) IsTrained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.centroids != nil
}

// Add assigns each vector to its nearest centroid's list.
func (f *IVFFlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("vector", f.dimensions, vectors); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.centroids == nil {
		return notTrained(FamilyIVFFlat)
	}
	assigned, err := transform.AssignClusters(vectors, f.centroids, 1)
	if err != nil {
		return err
	}
	for i, v := range vectors {
		pos := int64(len(f.vectors))
		f.vectors = append(f.vectors, append([]float32(nil), v...))
		list := assigned[i][0]
		f.lists[list] = append(f.lists[list], pos)
	}
	return nil
}

// Search scans the nprobe best lists by inner product.
func (f *IVFFlatIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if err := checkK(k); err != nil {
		return nil, nil, err
	}
	if err := checkDimensions("query", f.dimensions, queries); err != nil {
		return nil, nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.centroids == nil {
		return nil, nil, notTrained(FamilyIVFFlat)
	}
	probes, err := transform.AssignClusters(queries, f.centroids, f.nprobe)
	if err != nil {
		return nil, nil, err
	}
	scores := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))
	for qi, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		var cands []candidate
		for _, list := range probes[qi] {
			for _, pos := range f.lists[list] {
				cands = append(cands, candidate{pos: pos, score: InnerProduct(q, f.vectors[pos])})
			}
		}
		scores[qi], positions[qi] = topK(cands, k, false)
	}
	return scores, positions, nil
}

// ListSizes returns the number of vectors in each inverted list.
func (f *IVFFlatIndex) ListSizes() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sizes := make([]int, len(f.lists))
	for i, l := range f.lists {
		sizes[i] = len(l)
	}
	return sizes
}

// Size returns the number of stored vectors.
func (f *IVFFlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimensions returns the vector dimension.
func (f *IVFFlatIndex) Dimensions() int { return f.dimensions }
