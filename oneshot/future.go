package oneshot

import (
	"context"
	"sync"
)

// Result is the payload carried by a Future's one-shot.
type Result[T any] struct {
	Value T
	Err   error
}

// Future resolves exactly once with a value or an error. Any number of
// goroutines may Await it; all observe the same outcome.
type Future[T any] struct {
	rx       *Receiver[Result[T]]
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	draining bool
	res      Result[T]
}

// NewFuture returns a future together with the sender that resolves it.
func NewFuture[T any]() (*Sender[Result[T]], *Future[T]) {
	tx, rx := New[Result[T]]()
	return tx, &Future[T]{rx: rx, done: make(chan struct{})}
}

// Resolved returns a future that is already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.resolve(Result[T]{Value: v})
	return f
}

// Failed returns a future that is already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.resolve(Result[T]{Err: err})
	return f
}

func (f *Future[T]) resolve(r Result[T]) {
	f.once.Do(func() {
		f.res = r
		close(f.done)
	})
}

// drain hands the receiver to a single goroutine that resolves the future.
// Once it runs, Poll no longer reads the receiver itself.
func (f *Future[T]) drain() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draining {
		return
	}
	select {
	case <-f.done:
		return
	default:
	}
	f.draining = true

	go func() {
		r, err := f.rx.Recv(context.Background())
		if err != nil {
			r = Result[T]{Err: err}
		}
		f.resolve(r)
	}()
}

// Await blocks until the future resolves or ctx is done. Abandoning the wait
// does not cancel the work that resolves the future, and other awaiters are
// not affected.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	default:
	}

	f.drain()

	select {
	case <-f.done:
		return f.res.Value, f.res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll reports the outcome without blocking. ok is false while unresolved.
func (f *Future[T]) Poll() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.res.Value, f.res.Err, true
	default:
	}

	f.mu.Lock()
	if !f.draining {
		r, ready, rerr := f.rx.TryRecv()
		if ready {
			if rerr != nil {
				r = Result[T]{Err: rerr}
			}
			f.resolve(r)
		}
	}
	f.mu.Unlock()

	select {
	case <-f.done:
		return f.res.Value, f.res.Err, true
	default:
		return v, nil, false
	}
}
