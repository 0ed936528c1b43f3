package event

import "container/heap"

// Queue is the event queue: a binary heap ordered by (Time, Sequence), per
// design notes calling for O(log n) insertion and extraction keyed that way.
// It is not safe for concurrent use by itself; devi.Devi guards it with its
// own mutex for controller.RealTime, where events may be posted from
// goroutines other than the dispatch loop.
type Queue struct {
	h recordHeap
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// Push inserts r into the queue in O(log n).
func (q *Queue) Push(r *Record) {
	heap.Push(&q.h, r)
}

// Pop removes and returns the earliest-due Record, or nil if the queue is
// empty. Ties on Time are broken by Sequence, ascending - the order
// Sequence numbers were assigned at post or re-post time.
func (q *Queue) Pop() *Record {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Record)
}

// Peek returns the earliest-due Record without removing it, or nil if the
// queue is empty.
func (q *Queue) Peek() *Record {
	if q.h.Len() == 0 {
		return nil
	}
	return q.h[0]
}

// Len returns the number of events currently queued.
func (q *Queue) Len() int {
	return q.h.Len()
}

// recordHeap implements container/heap.Interface over *Record, ordered by
// (Time, Sequence).
type recordHeap []*Record

func (h recordHeap) Len() int { return len(h) }

func (h recordHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Sequence < h[j].Sequence
}

func (h recordHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *recordHeap) Push(x any) {
	*h = append(*h, x.(*Record))
}

func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return r
}
