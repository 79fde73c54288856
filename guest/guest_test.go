package guest

import (
	"bytes"
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/pool"
)

// testModule imports fd_write and proc_exit and exports:
//
//	_start  writes "hi\n" to fd 1
//	exit0   proc_exit(0)
//	fail    proc_exit(3)
//	inc     increments a global counter and returns it
var testModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x14, 0x04, 0x60, 0x04, 0x7f, 0x7f, 0x7f,
	0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x01, 0x7f, 0x02, 0x46,
	0x02, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f,
	0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31, 0x08, 0x66, 0x64, 0x5f, 0x77, 0x72, 0x69, 0x74,
	0x65, 0x00, 0x00, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f,
	0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31, 0x09, 0x70, 0x72, 0x6f, 0x63, 0x5f,
	0x65, 0x78, 0x69, 0x74, 0x00, 0x02, 0x03, 0x05, 0x04, 0x01, 0x01, 0x01, 0x03, 0x05, 0x03, 0x01,
	0x00, 0x01, 0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x00, 0x0b, 0x07, 0x28, 0x05, 0x06, 0x6d, 0x65,
	0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x02, 0x05,
	0x65, 0x78, 0x69, 0x74, 0x30, 0x00, 0x03, 0x04, 0x66, 0x61, 0x69, 0x6c, 0x00, 0x04, 0x03, 0x69,
	0x6e, 0x63, 0x00, 0x05, 0x0a, 0x29, 0x04, 0x0d, 0x00, 0x41, 0x01, 0x41, 0x00, 0x41, 0x01, 0x41,
	0x10, 0x10, 0x00, 0x1a, 0x0b, 0x06, 0x00, 0x41, 0x00, 0x10, 0x01, 0x0b, 0x06, 0x00, 0x41, 0x03,
	0x10, 0x01, 0x0b, 0x0b, 0x00, 0x23, 0x00, 0x41, 0x01, 0x6a, 0x24, 0x00, 0x23, 0x00, 0x0b, 0x0b,
	0x11, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x0b, 0x08, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x68,
	0x69, 0x0a,
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	ctx := context.Background()
	h, err := New(ctx, opts...)
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func newThread(t *testing.T, h *Host, ec pool.ExecContext) *Thread {
	t.Helper()
	th, err := h.NewThread(context.Background(), ec)
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}
	return th.(*Thread)
}

func TestThreadRunWritesStdout(t *testing.T) {
	var out syncBuffer
	h := newHost(t, WithStdout(&out))

	th := newThread(t, h, pool.ExecContext{ThreadID: 1, Module: pool.ModuleRef{Bytes: testModule}})
	if th.ThreadID() != 1 {
		t.Errorf("expected thread 1, got %d", th.ThreadID())
	}
	if err := th.Run(context.Background(), ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("expected hi, got %q", out.String())
	}
}

func TestThreadStatePersists(t *testing.T) {
	h := newHost(t)
	th := newThread(t, h, pool.ExecContext{Module: pool.ModuleRef{Bytes: testModule}})

	for want := uint64(1); want <= 3; want++ {
		res, err := th.Call(context.Background(), "inc")
		if err != nil {
			t.Fatalf("inc: %v", err)
		}
		if len(res) != 1 || res[0] != want {
			t.Errorf("expected %d, got %v", want, res)
		}
	}

	other := newThread(t, h, pool.ExecContext{Module: pool.ModuleRef{Bytes: testModule}})
	res, err := other.Call(context.Background(), "inc")
	if err != nil || res[0] != 1 {
		t.Errorf("expected fresh state in new thread, got (%v, %v)", res, err)
	}
}

func TestThreadExitCodes(t *testing.T) {
	h := newHost(t)

	ok := newThread(t, h, pool.ExecContext{Entry: "exit0", Module: pool.ModuleRef{Bytes: testModule}})
	if err := ok.Run(context.Background(), "exit0"); err != nil {
		t.Errorf("expected exit 0 to succeed, got %v", err)
	}
	if _, err := ok.Call(context.Background(), "inc"); err == nil {
		t.Error("expected call after exit to fail")
	}

	bad := newThread(t, h, pool.ExecContext{Entry: "fail", Module: pool.ModuleRef{Bytes: testModule}})
	err := bad.Run(context.Background(), "fail")
	var rerr *errors.Error
	if !stderrors.As(err, &rerr) || rerr.Kind != errors.KindExit || rerr.Value != uint32(3) {
		t.Errorf("expected exit code 3, got %v", err)
	}
}

func TestThreadMissingExport(t *testing.T) {
	h := newHost(t)
	th := newThread(t, h, pool.ExecContext{Module: pool.ModuleRef{Bytes: testModule}})

	err := th.Run(context.Background(), "nope")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindNotFound}) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestNewThreadFromCache(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemory(4)
	key := cache.Key(testModule)
	_ = mc.Save(ctx, key, testModule)

	h := newHost(t, WithModuleCache(mc))
	if _, err := h.NewThread(ctx, pool.ExecContext{Module: pool.ModuleRef{Key: key}}); err != nil {
		t.Fatalf("new thread from cache: %v", err)
	}

	_, err := h.NewThread(ctx, pool.ExecContext{Module: pool.ModuleRef{Key: "blake3:missing"}})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseGuest, Kind: errors.KindNotFound}) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestNewThreadErrors(t *testing.T) {
	h := newHost(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ec   pool.ExecContext
	}{
		{"empty ref", pool.ExecContext{}},
		{"key without cache", pool.ExecContext{Module: pool.ModuleRef{Key: "k"}}},
		{"garbage", pool.ExecContext{Module: pool.ModuleRef{Bytes: []byte("not wasm")}}},
	}
	for _, tt := range tests {
		if _, err := h.NewThread(ctx, tt.ec); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestExecuteOnPool(t *testing.T) {
	var out syncBuffer
	h := newHost(t, WithStdout(&out))
	p := pool.New(pool.Config{Guests: h})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ec := pool.ExecContext{ThreadID: 7, Module: pool.ModuleRef{Bytes: testModule}}
	for i := 0; i < 2; i++ {
		if _, err := Execute(p, ec).Await(ctx); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	if out.String() != "hi\nhi\n" {
		t.Errorf("expected two greetings, got %q", out.String())
	}
}

func TestExecuteUsesEachTaskEntry(t *testing.T) {
	var out syncBuffer
	h := newHost(t, WithStdout(&out))
	p := pool.New(pool.Config{Guests: h})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ec := pool.ExecContext{ThreadID: 9, Entry: "_start", Module: pool.ModuleRef{Bytes: testModule}}
	if _, err := Execute(p, ec).Await(ctx); err != nil {
		t.Fatalf("execute _start: %v", err)
	}

	ec.Entry = "fail"
	_, err := Execute(p, ec).Await(ctx)
	var rerr *errors.Error
	if !stderrors.As(err, &rerr) || rerr.Kind != errors.KindExit || rerr.Value != uint32(3) {
		t.Errorf("expected exit code 3 from second entry, got %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("expected a single greeting, got %q", out.String())
	}
}

func TestExecuteThreadCreationFailure(t *testing.T) {
	h := newHost(t)
	p := pool.New(pool.Config{Guests: h})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Execute(p, pool.ExecContext{ThreadID: 2, Module: pool.ModuleRef{Bytes: []byte("bad")}}).Await(ctx)
	if !stderrors.Is(err, errors.ErrDelivery) {
		t.Errorf("expected dropped delivery, got %v", err)
	}
}
