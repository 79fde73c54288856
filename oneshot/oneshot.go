package oneshot

import (
	"context"
	"sync"

	"github.com/wippyai/wasi-host/errors"
)

var (
	// ErrDropped is observed by a receiver whose sender was closed without sending.
	ErrDropped = &errors.Error{
		Phase:  errors.PhaseBridge,
		Kind:   errors.KindDelivery,
		Detail: "sender dropped before delivering a result",
	}

	// ErrAlreadySent is returned by a second Send on the same sender.
	ErrAlreadySent = &errors.Error{
		Phase:  errors.PhaseBridge,
		Kind:   errors.KindAlreadySent,
		Detail: "one-shot value already sent",
	}
)

// Sender is the producing half of a one-shot handoff. It may be moved into
// another worker's task; it is safe to call from any goroutine.
type Sender[T any] struct {
	ch   chan T
	once sync.Once
}

// Receiver is the consuming half of a one-shot handoff. It has a single consumer.
type Receiver[T any] struct {
	ch chan T
}

// New creates a paired sender and receiver sharing a slot of capacity one.
func New[T any]() (*Sender[T], *Receiver[T]) {
	ch := make(chan T, 1)
	return &Sender[T]{ch: ch}, &Receiver[T]{ch: ch}
}

// Send delivers v. It never blocks, even when nobody is receiving.
// Only the first Send or Close takes effect.
func (s *Sender[T]) Send(v T) error {
	sent := false
	s.once.Do(func() {
		s.ch <- v
		close(s.ch)
		sent = true
	})
	if !sent {
		return ErrAlreadySent
	}
	return nil
}

// Close drops the sender. If nothing was sent the receiver observes ErrDropped.
// Close after Send is a no-op.
func (s *Sender[T]) Close() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// Recv waits for the value. ctx bounds only the caller's wait; the producer is
// not cancelled and a later send is silently discarded.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-r.ch:
		if !ok {
			return zero, ErrDropped
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv returns the value if it is already available.
// ready is false while the sender is still pending.
func (r *Receiver[T]) TryRecv() (v T, ready bool, err error) {
	select {
	case v, ok := <-r.ch:
		if !ok {
			return v, true, ErrDropped
		}
		return v, true, nil
	default:
		return v, false, nil
	}
}
