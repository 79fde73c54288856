package pool

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/errors"
)

// SharedTask is a unit of work for a shared worker. Run executes on the
// worker's event loop and must not block: long-running host work goes through
// Await so sibling tasks and timers keep making progress.
//
// Exactly one of Run or Drop is called once the pool accepts the task. Drop is
// also called if Run panics.
type SharedTask struct {
	Run  func(l *Loop)
	Drop func()
}

type macrotask struct {
	run  func()
	drop func()
}

// Loop is the single-threaded event loop of one shared worker. Tasks and
// posted continuations run in arrival order, one at a time.
type Loop struct {
	ctx     context.Context
	queue   *taskQueue[macrotask]
	logger  *zap.Logger
	done    chan struct{}
	id      int
	pending atomic.Int64
	ran     atomic.Uint64
}

func newLoop(ctx context.Context, id, limit int) *Loop {
	return &Loop{
		ctx:    ctx,
		queue:  newTaskQueue[macrotask](limit),
		logger: Logger().With(zap.Int("loop", id)),
		done:   make(chan struct{}),
		id:     id,
	}
}

// ID returns the index of the shared worker that owns this loop.
func (l *Loop) ID() int { return l.id }

// Context is cancelled when the owning pool closes.
func (l *Loop) Context() context.Context { return l.ctx }

// Pending returns the number of Await operations whose continuation has not run.
func (l *Loop) Pending() int64 { return l.pending.Load() }

// Post schedules fn to run on the loop after everything already queued.
// It is safe to call from any goroutine and never blocks.
func (l *Loop) Post(fn func()) error {
	return l.queue.pushLimited(macrotask{run: fn}, false)
}

func (l *Loop) submit(t SharedTask) error {
	return l.queue.push(macrotask{
		run:  func() { t.Run(l) },
		drop: t.Drop,
	})
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		t, ok := l.queue.pop()
		if !ok {
			if !l.queue.wait(l.ctx) {
				return
			}
			continue
		}
		l.exec(t)
	}
}

func (l *Loop) exec(t macrotask) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("shared task panicked", zap.Any("panic", r))
			if t.drop != nil {
				t.drop()
			}
		}
	}()
	l.ran.Add(1)
	t.run()
}

// shutdown stops accepting work and drops whatever is still queued.
func (l *Loop) shutdown() {
	for _, t := range l.queue.close() {
		if t.drop != nil {
			t.drop()
		}
	}
}

// ErrLoopClosed is delivered to Await continuations whose loop shut down
// before the continuation could run.
var ErrLoopClosed = errors.Closed(errors.PhaseSchedule, "shared worker loop")

// Await starts host work off the loop and delivers its outcome back onto the
// loop, the way a host promise resolves into the worker's event loop. then is
// called exactly once: on the loop, or with ErrLoopClosed if the loop shut
// down first. work receives the pool context, not the caller's.
func Await[T any](l *Loop, work func(ctx context.Context) (T, error), then func(T, error)) {
	l.pending.Add(1)
	go func() {
		v, err := work(l.ctx)

		var once atomic.Bool
		finish := func(v T, err error) {
			if once.CompareAndSwap(false, true) {
				l.pending.Add(-1)
				then(v, err)
			}
		}

		perr := l.queue.pushLimited(macrotask{
			run: func() { finish(v, err) },
			drop: func() {
				var zero T
				finish(zero, ErrLoopClosed)
			},
		}, false)
		if perr != nil {
			var zero T
			finish(zero, ErrLoopClosed)
		}
	}()
}
