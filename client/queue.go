package client

// pending is an ordered, unbounded buffer for values that arrive while no
// handler is installed. Insertion order is arrival order.
//
// It is deliberately unbounded: a caller that never installs a handler keeps
// every buffered value alive. Synchronization is the owning slot's concern;
// pending itself is not goroutine-safe.
type pending[T any] struct {
	items []T
}

// push appends v to the back of the buffer.
func (q *pending[T]) push(v T) {
	q.items = append(q.items, v)
}

// pop removes and returns the front of the buffer, reporting false when the
// buffer is empty.
func (q *pending[T]) pop() (T, bool) {
	var zero T

	if len(q.items) == 0 {
		return zero, false
	}

	v := q.items[0]
	q.items[0] = zero // release the reference
	q.items = q.items[1:]

	return v, true
}

// len reports the number of buffered values.
func (q *pending[T]) len() int {
	return len(q.items)
}
