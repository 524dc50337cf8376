package miniagent

import (
	"container/heap"
	"sync"

	"github.com/flexicli/flexicli/internal/errs"
)

// defaultQueueCapacity bounds the number of pending tasks (spec §4.11).
const defaultQueueCapacity = 100

type queueItem struct {
	task Task
	seq  int64 // insertion order, for FIFO-within-priority
}

// priorityHeap orders high > normal > low, and within equal priority the
// lower sequence number (earlier insertion) first.
type priorityHeap []queueItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(queueItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the bounded, priority-ordered pending-task queue (spec §4.11).
type Queue struct {
	mu       sync.Mutex
	heap     priorityHeap
	capacity int
	nextSeq  int64
}

// NewQueue builds a Queue with the given capacity (0 uses
// defaultQueueCapacity).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	q := &Queue{capacity: capacity}
	heap.Init(&q.heap)
	return q
}

// Enqueue adds task to the queue, returning a typed errs.KindBudgetExceeded
// error and leaving the queue unchanged when it is already at capacity
// (spec §4.11, §8 "Spawning an agent when queue is full → typed error; no
// state change").
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.capacity {
		return errs.BudgetExceeded("miniagent.Queue.Enqueue", "mini-agent queue is at capacity", nil).
			WithField("capacity", q.capacity)
	}

	heap.Push(&q.heap, queueItem{task: task, seq: q.nextSeq})
	q.nextSeq++
	return nil
}

// Pop removes and returns the highest-priority (oldest within priority)
// task, or ok=false if the queue is empty.
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return Task{}, false
	}
	item := heap.Pop(&q.heap).(queueItem)
	return item.task, true
}

// Len reports the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
