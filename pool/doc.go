// Package pool provides the worker pool the host runtime schedules onto.
//
// The pool models a host that has no native threads, only isolated workers
// that communicate by message passing. Three kinds of worker exist:
//
//	Shared     - a fixed set of event loops. Tasks must not block; host work is
//	             started with Await and its outcome re-enters the loop later.
//	Dedicated  - one goroutine per task, reused when idle. Tasks may block.
//	Guest      - pinned to a guest thread id; keeps GuestThread state alive
//	             across tasks submitted for that thread.
//
// # Submission
//
// SpawnShared, SpawnDedicated and SpawnGuest never block. They fail with a
// thread error (errors.KindThread) when the pool is closed, a shared queue is
// over its limit, or the worker budget is exhausted. Failed submissions leave
// the task with the caller. Accepted tasks are consumed exactly once: Run is
// called, or Drop is called when the pool discards the task.
//
// # Ordering
//
// Within one shared loop, tasks and Await continuations run in arrival order.
// There is no ordering across loops. Shared tasks are spread round-robin.
//
// # Thread Safety
//
// Pool is safe for concurrent use. Loop methods other than Post, Context, ID
// and Pending must only be used from the loop's own tasks.
package pool
