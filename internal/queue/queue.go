// Package queue provides a FIFO queue safe for concurrent use.
package queue

import "sync"

type node[T any] struct {
	value T
	next  *node[T]
}

// Queue is a linked-list FIFO queue guarded by a mutex.
// A bounded queue drops its oldest element to make room for a new one.
type Queue[T any] struct {
	mu     sync.Mutex
	head   *node[T]
	tail   *node[T]
	size   int
	capped int
}

// Bounded returns a queue holding at most capacity elements.
// Pushing into a full queue drops the oldest element.
func Bounded[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{capped: capacity}
}

// Unbounded returns a queue that grows without limit.
func Unbounded[T any]() *Queue[T] {
	return &Queue[T]{capped: -1}
}

// Push adds value to the back of the queue. If the queue is bounded and full,
// the oldest element is removed and returned with dropped set to true.
func (q *Queue[T]) Push(value T) (old T, dropped bool) {
	n := &node[T]{value: value}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capped > 0 && q.size == q.capped {
		old, dropped = q.popLocked()
	}

	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.size++

	return old, dropped
}

// Pop removes and returns the element at the front of the queue.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.popLocked()
}

func (q *Queue[T]) popLocked() (T, bool) {
	head := q.head
	if head == nil {
		var zero T
		return zero, false
	}

	q.head = head.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--

	return head.value, true
}

// Drain removes and returns every element in FIFO order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, q.size)
	for n := q.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	q.head, q.tail, q.size = nil, nil, 0

	return out
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.size
}
