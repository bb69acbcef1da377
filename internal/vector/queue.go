package vector

import "container/heap"

var _ heap.Interface = (*priorityQueue)(nil)

type queueItem struct {
	node     int
	distance float32
}

// priorityQueue is a min-heap on distance, or a max-heap when max is set.
type priorityQueue struct {
	max   bool
	items []queueItem
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	if pq.max {
		return pq.items[i].distance > pq.items[j].distance
	}
	return pq.items[i].distance < pq.items[j].distance
}

func (pq *priorityQueue) Swap(i, j int) { pq.items[i], pq.items[j] = pq.items[j], pq.items[i] }

func (pq *priorityQueue) Push(x any) { pq.items = append(pq.items, x.(queueItem)) }

func (pq *priorityQueue) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	pq.items = old[:n-1]
	return item
}

func (pq *priorityQueue) top() queueItem { return pq.items[0] }
