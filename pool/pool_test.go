package pool

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/wasi-host/errors"
)

func waitChan(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestSharedTasksRunInSubmissionOrder(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	var order []int
	done := make(chan struct{})
	const n = 100
	for i := 0; i < n; i++ {
		err := p.SpawnShared(SharedTask{Run: func(*Loop) {
			order = append(order, i)
			if i == n-1 {
				close(done)
			}
		}})
		if err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}
	waitChan(t, done, "shared tasks")

	for i, v := range order {
		if v != i {
			t.Fatalf("expected order[%d]=%d, got %d", i, i, v)
		}
	}
}

func TestSpawnSharedDoesNotBlockOnBusyLoop(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) {
		close(started)
		<-release
	}})
	waitChan(t, started, "blocking task")

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = p.SpawnShared(SharedTask{Run: func(*Loop) {}})
		}
		close(submitted)
	}()
	waitChan(t, submitted, "non-blocking submission")
	close(release)
}

func TestSharedQueueLimit(t *testing.T) {
	p := New(Config{SharedWorkers: 1, QueueLimit: 2})
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) {
		close(started)
		<-release
	}})
	waitChan(t, started, "blocking task")

	for i := 0; i < 2; i++ {
		if err := p.SpawnShared(SharedTask{Run: func(*Loop) {}}); err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
	}
	err := p.SpawnShared(SharedTask{Run: func(*Loop) {}})
	if !stderrors.Is(err, errors.ErrThread) {
		t.Errorf("expected thread error, got %v", err)
	}
	close(release)
}

func TestSharedTaskPanicDropsAndLoopSurvives(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	dropped := make(chan struct{})
	_ = p.SpawnShared(SharedTask{
		Run:  func(*Loop) { panic("boom") },
		Drop: func() { close(dropped) },
	})
	waitChan(t, dropped, "drop after panic")

	ran := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) { close(ran) }})
	waitChan(t, ran, "task after panic")
}

func TestCloseDropsQueuedSharedTasks(t *testing.T) {
	p := New(Config{SharedWorkers: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) {
		close(started)
		<-release
	}})
	waitChan(t, started, "blocking task")

	var dropped, ran atomic.Int32
	for i := 0; i < 5; i++ {
		_ = p.SpawnShared(SharedTask{
			Run:  func(*Loop) { ran.Add(1) },
			Drop: func() { dropped.Add(1) },
		})
	}

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	waitChan(t, closed, "pool close")

	if got := dropped.Load() + ran.Load(); got != 5 {
		t.Errorf("expected every task consumed once, got %d", got)
	}
	if dropped.Load() == 0 {
		t.Error("expected queued tasks to be dropped on close")
	}

	err := p.SpawnShared(SharedTask{Run: func(*Loop) {}})
	if !stderrors.Is(err, errors.ErrThread) {
		t.Errorf("expected thread error after close, got %v", err)
	}
}

func TestAwaitContinuationRunsOnLoop(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	var events []string
	done := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(l *Loop) {
		events = append(events, "start")
		Await(l, func(ctx context.Context) (int, error) {
			return 7, nil
		}, func(v int, err error) {
			if err != nil || v != 7 {
				t.Errorf("unexpected continuation (%d, %v)", v, err)
			}
			events = append(events, "then")
			close(done)
		})
		events = append(events, "returned")
	}})
	waitChan(t, done, "continuation")

	if len(events) != 3 || events[0] != "start" || events[1] != "returned" || events[2] != "then" {
		t.Errorf("unexpected event order %v", events)
	}
}

func TestAwaitDoesNotStallSiblings(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	release := make(chan struct{})
	sibling := make(chan struct{})
	finished := make(chan struct{})

	_ = p.SpawnShared(SharedTask{Run: func(l *Loop) {
		Await(l, func(ctx context.Context) (struct{}, error) {
			<-release
			return struct{}{}, nil
		}, func(struct{}, error) { close(finished) })
	}})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) { close(sibling) }})

	waitChan(t, sibling, "sibling task while host work pending")
	close(release)
	waitChan(t, finished, "continuation")
}

func TestAwaitAfterCloseDeliversLoopClosed(t *testing.T) {
	p := New(Config{SharedWorkers: 1})

	release := make(chan struct{})
	got := make(chan error, 1)
	started := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(l *Loop) {
		Await(l, func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		}, func(_ int, err error) { got <- err })
	}})
	waitChan(t, started, "host work")
	p.Close()
	close(release)

	select {
	case err := <-got:
		if !stderrors.Is(err, ErrLoopClosed) {
			t.Errorf("expected ErrLoopClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("continuation never ran")
	}
}

func TestDedicatedTasksRunIndependently(t *testing.T) {
	p := New(Config{SharedWorkers: 1})
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	barrier := make(chan struct{})
	for i := 0; i < 2; i++ {
		err := p.SpawnDedicated(DedicatedTask{Run: func(ctx context.Context) {
			defer wg.Done()
			<-barrier
		}})
		if err != nil {
			t.Fatalf("spawn dedicated: %v", err)
		}
	}

	shared := make(chan struct{})
	_ = p.SpawnShared(SharedTask{Run: func(*Loop) { close(shared) }})
	waitChan(t, shared, "shared task while dedicated tasks block")

	close(barrier)
	wg.Wait()
}

func TestDedicatedWorkerLimit(t *testing.T) {
	p := New(Config{MaxWorkers: 1})
	defer p.Close()

	release := make(chan struct{})
	if err := p.SpawnDedicated(DedicatedTask{Run: func(context.Context) { <-release }}); err != nil {
		t.Fatalf("first spawn: %v", err)
	}
	err := p.SpawnDedicated(DedicatedTask{Run: func(context.Context) {}})
	if !stderrors.Is(err, errors.ErrThread) {
		t.Errorf("expected thread error at limit, got %v", err)
	}
	close(release)
}

func TestDedicatedWorkerReused(t *testing.T) {
	p := New(Config{MaxWorkers: 1})
	defer p.Close()

	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		if err := p.SpawnDedicated(DedicatedTask{Run: func(context.Context) { close(done) }}); err != nil {
			t.Fatalf("spawn %d: %v", i, err)
		}
		waitChan(t, done, "dedicated task")

		deadline := time.Now().Add(2 * time.Second)
		for p.Stats().IdleDedicated != 1 {
			if time.Now().After(deadline) {
				t.Fatal("worker never returned to idle list")
			}
			time.Sleep(time.Millisecond)
		}
	}
	if w := p.Stats().Workers; w != 1 {
		t.Errorf("expected 1 worker, got %d", w)
	}
}

func TestDedicatedPanicDrops(t *testing.T) {
	p := New(Config{})
	defer p.Close()

	dropped := make(chan struct{})
	_ = p.SpawnDedicated(DedicatedTask{
		Run:  func(context.Context) { panic("boom") },
		Drop: func() { close(dropped) },
	})
	waitChan(t, dropped, "drop after panic")
}

type fakeThread struct {
	closed atomic.Bool
	calls  int
	id     uint32
}

func (f *fakeThread) ThreadID() uint32 { return f.id }
func (f *fakeThread) Close(context.Context) error {
	f.closed.Store(true)
	return nil
}

type fakeGuests struct {
	threads map[uint32]*fakeThread
	fail    error
	mu      sync.Mutex
	created int
}

func (g *fakeGuests) NewThread(_ context.Context, ec ExecContext) (GuestThread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	g.created++
	th := &fakeThread{id: ec.ThreadID}
	if g.threads == nil {
		g.threads = make(map[uint32]*fakeThread)
	}
	g.threads[ec.ThreadID] = th
	return th, nil
}

func TestGuestThreadStatePersists(t *testing.T) {
	host := &fakeGuests{}
	p := New(Config{Guests: host})
	defer p.Close()

	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		err := p.SpawnGuest(GuestTask{
			Context: ExecContext{ThreadID: 1},
			Run: func(_ context.Context, th GuestThread) {
				ft := th.(*fakeThread)
				ft.calls++
				results <- ft.calls
			},
		})
		if err != nil {
			t.Fatalf("spawn guest: %v", err)
		}
	}

	for want := 1; want <= 3; want++ {
		select {
		case got := <-results:
			if got != want {
				t.Errorf("expected call %d, got %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("guest task did not run")
		}
	}

	host.mu.Lock()
	created := host.created
	host.mu.Unlock()
	if created != 1 {
		t.Errorf("expected one thread created, got %d", created)
	}
}

func TestGuestThreadsAreSeparate(t *testing.T) {
	host := &fakeGuests{}
	p := New(Config{Guests: host})
	defer p.Close()

	var wg sync.WaitGroup
	for _, tid := range []uint32{1, 2} {
		wg.Add(1)
		_ = p.SpawnGuest(GuestTask{
			Context: ExecContext{ThreadID: tid},
			Run: func(_ context.Context, th GuestThread) {
				defer wg.Done()
				if th.ThreadID() != tid {
					t.Errorf("expected thread %d, got %d", tid, th.ThreadID())
				}
			},
		})
	}
	wg.Wait()

	if s := p.Stats(); s.GuestThreads != 2 {
		t.Errorf("expected 2 guest threads, got %d", s.GuestThreads)
	}
}

func TestGuestWithoutHost(t *testing.T) {
	p := New(Config{})
	defer p.Close()

	err := p.SpawnGuest(GuestTask{Run: func(context.Context, GuestThread) {}})
	if !stderrors.Is(err, errors.ErrThread) {
		t.Errorf("expected thread error, got %v", err)
	}
}

func TestGuestThreadCreationFailureDrops(t *testing.T) {
	p := New(Config{Guests: &fakeGuests{fail: stderrors.New("no module")}})
	defer p.Close()

	dropped := make(chan struct{})
	err := p.SpawnGuest(GuestTask{
		Context: ExecContext{ThreadID: 3},
		Run:     func(context.Context, GuestThread) { t.Error("Run should not be called") },
		Drop:    func() { close(dropped) },
	})
	if err != nil {
		t.Fatalf("spawn guest: %v", err)
	}
	waitChan(t, dropped, "drop on thread creation failure")
}

func TestReleaseGuestClosesThread(t *testing.T) {
	host := &fakeGuests{}
	p := New(Config{Guests: host})
	defer p.Close()

	ran := make(chan struct{})
	_ = p.SpawnGuest(GuestTask{
		Context: ExecContext{ThreadID: 9},
		Run:     func(context.Context, GuestThread) { close(ran) },
	})
	waitChan(t, ran, "guest task")

	if !p.ReleaseGuest(9) {
		t.Fatal("expected worker for thread 9")
	}
	if p.ReleaseGuest(9) {
		t.Error("second release should report false")
	}

	host.mu.Lock()
	th := host.threads[9]
	host.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for !th.closed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("thread state was not closed")
		}
		time.Sleep(time.Millisecond)
	}
}
