package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/host"
	"github.com/wippyai/wasi-host/oneshot"
	"github.com/wippyai/wasi-host/pool"
)

// DefaultParallelism is the parallelism reported when none is configured.
const DefaultParallelism = 8

// Manager is the task-manager contract offered to the guest engine.
type Manager interface {
	// Sleep resolves once d has elapsed on the host timer.
	Sleep(d time.Duration) *oneshot.Future[struct{}]
	// SpawnShared runs fn on a shared worker. fn must not block.
	SpawnShared(fn func(ctx context.Context)) error
	// SpawnDedicated runs fn on its own worker. fn may block.
	SpawnDedicated(fn func(ctx context.Context)) error
	// SpawnGuest runs t on the worker owning its guest thread.
	SpawnGuest(t pool.GuestTask) error
	// Parallelism is a fixed hint of how much concurrent work is useful.
	Parallelism() int
}

// ClampMillis converts d to whole milliseconds within the host timer range.
func ClampMillis(d time.Duration) int32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > host.MaxDelayMillis {
		return host.MaxDelayMillis
	}
	return int32(ms)
}

// WorkerManager implements Manager on top of a pool.
type WorkerManager struct {
	pool        *pool.Pool
	timer       host.Timer
	parallelism int
}

var _ Manager = (*WorkerManager)(nil)

// Option configures a WorkerManager.
type Option func(*WorkerManager)

// WithTimer replaces the system timer.
func WithTimer(t host.Timer) Option {
	return func(m *WorkerManager) { m.timer = t }
}

// WithParallelism sets the reported parallelism. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(m *WorkerManager) {
		if n >= 1 {
			m.parallelism = n
		}
	}
}

// NewWorkerManager creates a manager scheduling onto p.
func NewWorkerManager(p *pool.Pool, opts ...Option) *WorkerManager {
	m := &WorkerManager{
		pool:        p,
		timer:       host.SystemTimer{},
		parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sleep implements Manager. If the pool rejects the timer task the returned
// future is already failed with the thread error.
func (m *WorkerManager) Sleep(d time.Duration) *oneshot.Future[struct{}] {
	ms := ClampMillis(d)
	tx, fut := oneshot.NewFuture[struct{}]()

	err := m.pool.SpawnShared(pool.SharedTask{
		Run: func(l *pool.Loop) {
			pool.Await(l, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, m.timer.Sleep(ctx, ms)
			}, func(_ struct{}, err error) {
				_ = tx.Send(oneshot.Result[struct{}]{Err: err})
			})
		},
		Drop: tx.Close,
	})
	if err != nil {
		Logger().Debug("sleep rejected", zap.Int32("ms", ms), zap.Error(err))
		return oneshot.Failed[struct{}](err)
	}
	return fut
}

// SpawnShared implements Manager.
func (m *WorkerManager) SpawnShared(fn func(ctx context.Context)) error {
	return m.pool.SpawnShared(pool.SharedTask{
		Run: func(l *pool.Loop) { fn(l.Context()) },
	})
}

// SpawnDedicated implements Manager.
func (m *WorkerManager) SpawnDedicated(fn func(ctx context.Context)) error {
	return m.pool.SpawnDedicated(pool.DedicatedTask{Run: fn})
}

// SpawnGuest implements Manager.
func (m *WorkerManager) SpawnGuest(t pool.GuestTask) error {
	return m.pool.SpawnGuest(t)
}

// Parallelism implements Manager.
func (m *WorkerManager) Parallelism() int {
	return m.parallelism
}

// Pool returns the underlying pool.
func (m *WorkerManager) Pool() *pool.Pool {
	return m.pool
}
