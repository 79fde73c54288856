package pool

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/errors"
)

// dedicatedIdleTimeout is how long a finished dedicated worker waits for new
// work before it exits.
var dedicatedIdleTimeout = 30 * time.Second

// DedicatedTask is a unit of work that may block. It runs alone on its own
// worker, so blocking never delays shared tasks or other dedicated tasks.
// Exactly one of Run or Drop is called once the pool accepts the task; Drop
// is also called if Run panics.
type DedicatedTask struct {
	Run  func(ctx context.Context)
	Drop func()
}

type dedicatedWorker struct {
	tasks  chan DedicatedTask
	logger *zap.Logger
	id     string
}

// SpawnDedicated runs t on an idle dedicated worker, or starts a new one.
// It fails with a thread error when the worker budget is exhausted or the
// pool is closed. On error the caller still owns t.
func (p *Pool) SpawnDedicated(t DedicatedTask) error {
	if t.Run == nil {
		return errors.InvalidInput(errors.PhaseSchedule, "dedicated task without Run")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.Thread("spawn-dedicated", errors.Closed(errors.PhaseSchedule, "pool"))
	}

	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		w.tasks <- t
		p.mu.Unlock()
		return nil
	}

	if !p.reserveWorker() {
		p.mu.Unlock()
		return errors.New(errors.PhaseSchedule, errors.KindThread).
			Op("spawn-dedicated").
			Detail("worker limit %d reached", p.cfg.MaxWorkers).
			Build()
	}

	w := &dedicatedWorker{
		tasks: make(chan DedicatedTask, 1),
		id:    uuid.NewString(),
	}
	w.logger = Logger().With(zap.String("worker", w.id))
	w.tasks <- t
	p.wg.Add(1)
	p.mu.Unlock()

	go p.runDedicated(w)
	return nil
}

func (p *Pool) runDedicated(w *dedicatedWorker) {
	defer p.wg.Done()
	defer p.releaseWorker()

	w.logger.Debug("dedicated worker started")
	defer w.logger.Debug("dedicated worker exited")

	timer := time.NewTimer(dedicatedIdleTimeout)
	defer timer.Stop()

	for {
		select {
		case t, ok := <-w.tasks:
			if !ok {
				return
			}
			p.execDedicated(w, t)
			if !p.parkDedicated(w) {
				return
			}
			timer.Reset(dedicatedIdleTimeout)

		case <-timer.C:
			if p.unparkDedicated(w) {
				return
			}
			// A task was handed over while the timer fired; it is already buffered.
		}
	}
}

func (p *Pool) execDedicated(w *dedicatedWorker, t DedicatedTask) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("dedicated task panicked", zap.Any("panic", r))
			if t.Drop != nil {
				t.Drop()
			}
		}
	}()
	t.Run(p.ctx)
}

// parkDedicated returns w to the idle list. It reports false when the pool is
// closed and the worker should exit.
func (p *Pool) parkDedicated(w *dedicatedWorker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.idle = append(p.idle, w)
	return true
}

// unparkDedicated removes w from the idle list after its idle timeout. It
// reports false if w was already handed a task.
func (p *Pool) unparkDedicated(w *dedicatedWorker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, idle := range p.idle {
		if idle == w {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			return true
		}
	}
	return p.closed && len(w.tasks) == 0
}
