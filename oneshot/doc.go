// Package oneshot implements the single-producer/single-consumer handoff used
// whenever work running on another worker reports a result back to its caller.
//
// A caller creates a pair, moves the Sender into the task it submits, and waits
// on the Receiver (or on a Future built from it):
//
//	tx, fut := oneshot.NewFuture[*Response]()
//	pool.SpawnShared(pool.SharedTask{
//	    Run:  func(l *pool.Loop) { tx.Send(oneshot.Result[*Response]{Value: resp}) },
//	    Drop: tx.Close,
//	})
//	resp, err := fut.Await(ctx)
//
// Delivery guarantees:
//
//   - The receiver observes either the value sent or ErrDropped, never both and
//     never neither, provided the producer eventually calls Send or Close.
//   - Send never blocks and never panics, including when the receiver is gone.
//   - A second Send returns ErrAlreadySent.
//
// Waiting is a plain channel receive; there is no polling.
package oneshot
