package pool

import (
	"context"
	stderrors "errors"
	"sync"
)

var (
	errQueueFull   = stderrors.New("task queue full")
	errQueueClosed = stderrors.New("task queue closed")
)

// taskQueue is an unbounded-by-default FIFO with a wakeup signal. Producers
// never block; the single consumer waits on the signal channel.
type taskQueue[T any] struct {
	signal chan struct{}
	items  []T
	mu     sync.Mutex
	limit  int
	closed bool
}

func newTaskQueue[T any](limit int) *taskQueue[T] {
	return &taskQueue[T]{
		signal: make(chan struct{}, 1),
		limit:  limit,
	}
}

func (q *taskQueue[T]) push(v T) error {
	return q.pushLimited(v, true)
}

// pushLimited with limited=false ignores the queue limit. Continuations of
// already-accepted work use it so they are never rejected.
func (q *taskQueue[T]) pushLimited(v T, limited bool) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errQueueClosed
	}
	if limited && q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return errQueueFull
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *taskQueue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// wait blocks until an item may be available. It returns false once the queue
// is closed and drained, or ctx is done.
func (q *taskQueue[T]) wait(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.items) > 0 {
		q.mu.Unlock()
		return true
	}
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.mu.Unlock()

	select {
	case <-q.signal:
		return true
	case <-ctx.Done():
		return false
	}
}

// close rejects further pushes and returns whatever was still queued.
func (q *taskQueue[T]) close() []T {
	q.mu.Lock()
	q.closed = true
	rest := q.items
	q.items = nil
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return rest
}

// seal rejects further pushes but leaves queued items for the consumer.
func (q *taskQueue[T]) seal() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *taskQueue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
