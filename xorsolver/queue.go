package xorsolver

import "container/heap"

// conflictQueue is a min-priority queue of variable indices, used to drive
// Bland's-rule selection (always pop the smallest conflicting index first).
type conflictQueue struct {
	items indexHeap
}

func newConflictQueue() *conflictQueue {
	q := &conflictQueue{}
	heap.Init(&q.items)
	return q
}

func (q *conflictQueue) push(i uint32) {
	heap.Push(&q.items, i)
}

func (q *conflictQueue) pop() (uint32, bool) {
	if q.items.Len() == 0 {
		return 0, false
	}
	return heap.Pop(&q.items).(uint32), true
}

func (q *conflictQueue) empty() bool {
	return q.items.Len() == 0
}

// drain empties the queue, invoking f for every index still queued. Used by
// Undo to clear the queued flag on variables discarded by backtracking.
func (q *conflictQueue) drain(f func(uint32)) {
	for !q.empty() {
		i, _ := q.pop()
		f(i)
	}
}

// indexHeap implements heap.Interface over plain uint32 variable indices.
type indexHeap []uint32

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x interface{}) {
	*h = append(*h, x.(uint32))
}

func (h *indexHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
