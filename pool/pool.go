package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/errors"
)

// Default pool sizing.
const (
	DefaultSharedWorkers = 4
	DefaultMaxWorkers    = 256
	DefaultQueueLimit    = 4096
)

// Config holds configuration for pool creation
type Config struct {
	// SharedWorkers is the number of event-loop workers shared by
	// non-blocking tasks. 0 means DefaultSharedWorkers.
	SharedWorkers int

	// MaxWorkers caps dedicated plus guest workers alive at once.
	// 0 means DefaultMaxWorkers.
	MaxWorkers int

	// QueueLimit caps the backlog of each shared loop. Submissions beyond it
	// fail with a thread error. 0 means DefaultQueueLimit, negative means unbounded.
	QueueLimit int

	// Guests creates per-thread interpreter state for guest-execution tasks.
	// SpawnGuest fails when it is nil.
	Guests GuestHost
}

func (c Config) withDefaults() Config {
	if c.SharedWorkers <= 0 {
		c.SharedWorkers = DefaultSharedWorkers
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.QueueLimit == 0 {
		c.QueueLimit = DefaultQueueLimit
	}
	if c.QueueLimit < 0 {
		c.QueueLimit = 0
	}
	return c
}

// Pool owns every worker. Shared workers are event loops; dedicated workers
// run one possibly-blocking task at a time; guest workers are pinned to a
// guest thread id and keep its interpreter state between tasks.
//
// Pool is safe for concurrent use. A *Pool is the handle every component
// shares; only the pool itself adds or removes workers.
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     Config
	loops   []*Loop
	idle    []*dedicatedWorker
	guests  map[uint32]*guestWorker
	wg      sync.WaitGroup
	next    atomic.Uint64
	mu      sync.Mutex
	workers int
	closed  bool
}

// New creates a pool and starts its shared workers.
func New(cfg Config) *Pool {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		guests: make(map[uint32]*guestWorker),
	}

	p.loops = make([]*Loop, cfg.SharedWorkers)
	for i := range p.loops {
		l := newLoop(ctx, i, cfg.QueueLimit)
		p.loops[i] = l
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			l.run()
		}()
	}

	Logger().Debug("pool started",
		zap.Int("shared_workers", cfg.SharedWorkers),
		zap.Int("max_workers", cfg.MaxWorkers))
	return p
}

// Config returns the effective configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// SpawnShared queues t on a shared worker. It never blocks. On error the
// caller still owns t; neither Run nor Drop is called.
func (p *Pool) SpawnShared(t SharedTask) error {
	if t.Run == nil {
		return errors.InvalidInput(errors.PhaseSchedule, "shared task without Run")
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return errors.Thread("spawn-shared", errors.Closed(errors.PhaseSchedule, "pool"))
	}

	l := p.loops[p.next.Add(1)%uint64(len(p.loops))]
	if err := l.submit(t); err != nil {
		return errors.Thread("spawn-shared", err)
	}
	return nil
}

// Close stops accepting work, drops queued tasks, cancels the pool context
// and waits for every worker to exit. Tasks already running finish first.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	guests := make([]*guestWorker, 0, len(p.guests))
	for id, g := range p.guests {
		guests = append(guests, g)
		delete(p.guests, id)
	}
	p.mu.Unlock()

	for _, l := range p.loops {
		l.shutdown()
	}
	for _, w := range idle {
		close(w.tasks)
	}
	for _, g := range guests {
		g.shutdown()
	}

	p.cancel()
	p.wg.Wait()
	Logger().Debug("pool closed")
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	SharedQueued    []int
	SharedPending   []int64
	Workers         int
	IdleDedicated   int
	GuestThreads    int
	SharedCompleted uint64
}

// Stats returns current occupancy. Values may be stale by the time they are read.
func (p *Pool) Stats() Stats {
	s := Stats{
		SharedQueued:  make([]int, len(p.loops)),
		SharedPending: make([]int64, len(p.loops)),
	}
	for i, l := range p.loops {
		s.SharedQueued[i] = l.queue.len()
		s.SharedPending[i] = l.Pending()
		s.SharedCompleted += l.ran.Load()
	}

	p.mu.Lock()
	s.Workers = p.workers
	s.IdleDedicated = len(p.idle)
	s.GuestThreads = len(p.guests)
	p.mu.Unlock()
	return s
}

// reserveWorker claims a slot in the worker budget. Caller holds p.mu.
func (p *Pool) reserveWorker() bool {
	if p.workers >= p.cfg.MaxWorkers {
		return false
	}
	p.workers++
	return true
}

func (p *Pool) releaseWorker() {
	p.mu.Lock()
	p.workers--
	p.mu.Unlock()
}
