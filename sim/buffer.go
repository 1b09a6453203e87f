package sim

// A Queue is a bounded FIFO backed by a ring of fixed size. It is not safe
// for concurrent use.
type Queue[T any] struct {
	items []T
	head  int
	count int
}

// NewQueue creates a queue that holds at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queue capacity must be positive")
	}

	return &Queue[T]{items: make([]T, capacity)}
}

// Capacity returns the maximum number of items.
func (q *Queue[T]) Capacity() int {
	return len(q.items)
}

// Size returns the number of queued items.
func (q *Queue[T]) Size() int {
	return q.count
}

// Full reports whether a Push would overflow.
func (q *Queue[T]) Full() bool {
	return q.count == len(q.items)
}

// Push appends e. Pushing into a full queue panics.
func (q *Queue[T]) Push(e T) {
	if q.Full() {
		panic("queue overflow")
	}

	q.items[(q.head+q.count)%len(q.items)] = e
	q.count++
}

// Peek returns the oldest item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T

	if q.count == 0 {
		return zero, false
	}

	return q.items[q.head], true
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T

	if q.count == 0 {
		return zero, false
	}

	e := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--

	return e, true
}
