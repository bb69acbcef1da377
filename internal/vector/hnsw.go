package vector

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// HNSW defaults.
const (
	DefaultHNSWM          = 8
	DefaultEfConstruction = 40
	DefaultEfSearch       = 16
)

type hnswNode struct {
	vector      []float32
	level       int
	connections [][]int
}

// HNSWIndex is a hierarchical navigable small world graph over inner product.
// Internally the graph orders by negative inner product; Search reports the
// inner product itself.
type HNSWIndex struct {
	dimensions     int
	m              int
	mmax0          int
	efConstruction int
	efSearch       int
	ml             float64
	rng            *rand.Rand

	nodes    []*hnswNode
	entry    int
	maxLevel int

	mu sync.RWMutex
}

// HNSWOptions configures NewHNSWIndex. Zero fields take the package defaults.
type HNSWOptions struct {
	M              int
	EfConstruction int
	EfSearch       int
	Seed           int64
}

// NewHNSWIndex creates an empty graph.
func NewHNSWIndex(dimensions int, opts HNSWOptions) (*HNSWIndex, error) {
	if err := checkPositive("dimensions", dimensions); err != nil {
		return nil, err
	}
	if opts.M <= 0 {
		opts.M = DefaultHNSWM
	}
	if opts.M == 1 {
		// level normalisation is 1/ln(M)
		opts.M = 2
	}
	if opts.EfConstruction <= 0 {
		opts.EfConstruction = DefaultEfConstruction
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = DefaultEfSearch
	}
	return &HNSWIndex{
		dimensions:     dimensions,
		m:              opts.M,
		mmax0:          2 * opts.M,
		efConstruction: opts.EfConstruction,
		efSearch:       opts.EfSearch,
		ml:             1 / math.Log(float64(opts.M)),
		rng:            rand.New(rand.NewSource(opts.Seed)),
		entry:          -1,
	}, nil
}

// Family returns FamilyHNSW.
func (h *HNSWIndex) Family() Family { return FamilyHNSW }

// SetEfSearch changes the search-time candidate list size.
func (h *HNSWIndex) SetEfSearch(ef int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ef > 0 {
		h.efSearch = ef
	}
}

func (h *HNSWIndex) distance(a, b []float32) float32 {
	return -InnerProduct(a, b)
}

// Add inserts vectors one at a time.
func (h *HNSWIndex) Add(ctx context.Context, vectors [][]float32) error {
	if err := checkDimensions("vector", h.dimensions, vectors); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.insert(append([]float32(nil), v...))
	}
	return nil
}

func (h *HNSWIndex) randomLevel() int {
	return int(math.Floor(-math.Log(1-h.rng.Float64()) * h.ml))
}

func (h *HNSWIndex) maxConnections(level int) int {
	if level == 0 {
		return h.mmax0
	}
	return h.m
}

func (h *HNSWIndex) insert(v []float32) {
	id := len(h.nodes)
	level := h.randomLevel()
	node := &hnswNode{vector: v, level: level, connections: make([][]int, level+1)}
	h.nodes = append(h.nodes, node)

	if h.entry < 0 {
		h.entry = id
		h.maxLevel = level
		return
	}

	ep := h.greedyDescend(v, h.entry, h.maxLevel, level)
	for l := min(level, h.maxLevel); l >= 0; l-- {
		found := h.searchLayer(v, ep, h.efConstruction, l)
		neighbours := found
		if len(neighbours) > h.m {
			neighbours = neighbours[:h.m]
		}
		node.connections[l] = make([]int, len(neighbours))
		for i, n := range neighbours {
			node.connections[l][i] = n.node
			h.link(n.node, id, l)
		}
		ep = found[0].node
	}

	if level > h.maxLevel {
		h.entry = id
		h.maxLevel = level
	}
}

// greedyDescend walks from ep through layers above stop, moving to any closer neighbour.
func (h *HNSWIndex) greedyDescend(q []float32, ep, from, stop int) int {
	curr := ep
	currDist := h.distance(q, h.nodes[curr].vector)
	for l := from; l > stop; l-- {
		changed := true
		for changed {
			changed = false
			for _, n := range h.nodes[curr].connections[l] {
				if d := h.distance(q, h.nodes[n].vector); d < currDist {
					curr, currDist, changed = n, d, true
				}
			}
		}
	}
	return curr
}

// link adds target to node's connections at level, pruning to the closest
// maxConnections when the list overflows.
func (h *HNSWIndex) link(node, target, level int) {
	n := h.nodes[node]
	n.connections[level] = append(n.connections[level], target)
	limit := h.maxConnections(level)
	if len(n.connections[level]) <= limit {
		return
	}
	conns := n.connections[level]
	dists := make([]float32, len(conns))
	for i, c := range conns {
		dists[i] = h.distance(n.vector, h.nodes[c].vector)
	}
	order := make([]int, len(conns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	pruned := make([]int, limit)
	for i := range pruned {
		pruned[i] = conns[order[i]]
	}
	n.connections[level] = pruned
}

// searchLayer returns up to ef nodes closest to q at level, closest first.
func (h *HNSWIndex) searchLayer(q []float32, ep, ef, level int) []queueItem {
	var visited bitset.BitSet
	visited.Set(uint(ep))

	start := queueItem{node: ep, distance: h.distance(q, h.nodes[ep].vector)}
	candidates := &priorityQueue{}
	heap.Push(candidates, start)
	results := &priorityQueue{max: true}
	heap.Push(results, start)

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(queueItem)
		if c.distance > results.top().distance {
			break
		}
		node := h.nodes[c.node]
		if level >= len(node.connections) {
			continue
		}
		for _, n := range node.connections[level] {
			if visited.Test(uint(n)) {
				continue
			}
			visited.Set(uint(n))
			d := h.distance(q, h.nodes[n].vector)
			if results.Len() < ef || d < results.top().distance {
				item := queueItem{node: n, distance: d}
				heap.Push(candidates, item)
				heap.Push(results, item)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]queueItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(queueItem)
	}
	return out
}

// Search returns inner products of the approximate k nearest nodes, best first.
func (h *HNSWIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]float32, [][]int64, error) {
	if err := checkK(k); err != nil {
		return nil, nil, err
	}
	if err := checkDimensions("query", h.dimensions, queries); err != nil {
		return nil, nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	ef := max(h.efSearch, k)
	scores := make([][]float32, len(queries))
	positions := make([][]int64, len(queries))
	for qi, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		var cands []candidate
		if h.entry >= 0 {
			ep := h.greedyDescend(q, h.entry, h.maxLevel, 0)
			for _, item := range h.searchLayer(q, ep, ef, 0) {
				cands = append(cands, candidate{pos: int64(item.node), score: -item.distance})
			}
		}
		scores[qi], positions[qi] = topK(cands, k, false)
	}
	return scores, positions, nil
}

// Size returns the number of nodes.
func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Dimensions returns the vector dimension.
func (h *HNSWIndex) Dimensions() int { return h.dimensions }
