// Package tasks adapts the worker pool to the task-manager contract the guest
// engine expects: sleeping, spawning non-blocking and blocking work, running
// guest code on its thread, and reporting available parallelism.
//
// Sleep is a shared task that asks the host timer to fire and resolves a
// future when it does. Delays are clamped to the host's maximum of
// math.MaxInt32 milliseconds. Abandoning the future does not cancel the
// timer.
//
// Spawn errors are thread errors from the pool. Nothing is retried.
package tasks
