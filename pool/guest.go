package pool

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/errors"
)

// ModuleRef identifies the guest module a thread executes. Key is the
// module cache key; Bytes may carry the module inline.
type ModuleRef struct {
	Key   string
	Bytes []byte
}

// ExecContext describes where a guest-execution task runs.
type ExecContext struct {
	Module ModuleRef
	// Entry is the exported function the task invokes.
	Entry string
	// Args are passed to the guest as its argv.
	Args []string
	// MemoryPages rejects modules whose initial memory exceeds it (64 KiB
	// pages). 0 means no limit beyond the host's.
	MemoryPages uint32
	ThreadID    uint32
}

// GuestThread is the thread-local interpreter state a guest worker keeps
// alive across tasks for the same thread id.
type GuestThread interface {
	ThreadID() uint32
	Close(ctx context.Context) error
}

// GuestHost creates guest threads. It is called on the guest worker itself,
// the first time a thread id is used.
type GuestHost interface {
	NewThread(ctx context.Context, ec ExecContext) (GuestThread, error)
}

// GuestTask is a dedicated task pinned to the guest worker that owns
// Context.ThreadID. Run receives that worker's thread state. Exactly one of
// Run or Drop is called once accepted; Drop is also called when the thread
// state cannot be created or Run panics.
type GuestTask struct {
	Run     func(ctx context.Context, th GuestThread)
	Drop    func()
	Context ExecContext
}

type guestWorker struct {
	queue  *taskQueue[GuestTask]
	logger *zap.Logger
	thread GuestThread
	id     string
	tid    uint32
}

// SpawnGuest routes t to the worker owning its thread id, creating the worker
// on first use. Tasks for one thread run in submission order.
func (p *Pool) SpawnGuest(t GuestTask) error {
	if t.Run == nil {
		return errors.InvalidInput(errors.PhaseSchedule, "guest task without Run")
	}
	if p.cfg.Guests == nil {
		return errors.Thread("spawn-guest", errors.NotInitialized(errors.PhaseSchedule, "guest host"))
	}

	tid := t.Context.ThreadID

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.Thread("spawn-guest", errors.Closed(errors.PhaseSchedule, "pool"))
	}

	g, ok := p.guests[tid]
	if !ok {
		if !p.reserveWorker() {
			p.mu.Unlock()
			return errors.New(errors.PhaseSchedule, errors.KindThread).
				Op("spawn-guest").
				Detail("worker limit %d reached", p.cfg.MaxWorkers).
				Build()
		}
		g = &guestWorker{
			queue: newTaskQueue[GuestTask](0),
			id:    uuid.NewString(),
			tid:   tid,
		}
		g.logger = Logger().With(zap.String("worker", g.id), zap.Uint32("thread", tid))
		p.guests[tid] = g
		p.wg.Add(1)
		go p.runGuest(g)
	}
	err := g.queue.push(t)
	p.mu.Unlock()

	if err != nil {
		return errors.Thread("spawn-guest", err)
	}
	return nil
}

// ReleaseGuest retires the worker owning tid once its queued tasks finish and
// closes its thread state. It reports whether such a worker existed.
func (p *Pool) ReleaseGuest(tid uint32) bool {
	p.mu.Lock()
	g, ok := p.guests[tid]
	if ok {
		delete(p.guests, tid)
	}
	p.mu.Unlock()

	if ok {
		g.queue.seal()
	}
	return ok
}

func (p *Pool) runGuest(g *guestWorker) {
	defer p.wg.Done()
	defer p.releaseWorker()

	g.logger.Debug("guest worker started")
	defer func() {
		if g.thread != nil {
			if err := g.thread.Close(context.Background()); err != nil {
				g.logger.Warn("failed to close guest thread", zap.Error(err))
			}
		}
		g.logger.Debug("guest worker exited")
	}()

	for {
		t, ok := g.queue.pop()
		if !ok {
			if !g.queue.wait(context.Background()) {
				return
			}
			continue
		}
		p.execGuest(g, t)
	}
}

func (p *Pool) execGuest(g *guestWorker, t GuestTask) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("guest task panicked", zap.Any("panic", r))
			if t.Drop != nil {
				t.Drop()
			}
		}
	}()

	if g.thread == nil {
		th, err := p.cfg.Guests.NewThread(p.ctx, t.Context)
		if err != nil {
			g.logger.Error("failed to create guest thread", zap.Error(err))
			if t.Drop != nil {
				t.Drop()
			}
			return
		}
		g.thread = th
	}
	t.Run(p.ctx, g.thread)
}

// shutdown drops queued tasks; the worker exits after the running one.
func (g *guestWorker) shutdown() {
	for _, t := range g.queue.close() {
		if t.Drop != nil {
			t.Drop()
		}
	}
}
