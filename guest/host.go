package guest

import (
	"context"
	"crypto/rand"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/pool"
)

// DefaultEntry is the function Thread.Run calls when ExecContext.Entry is empty.
const DefaultEntry = "_start"

// Host creates guest threads backed by one wazero runtime.
type Host struct {
	runtime  wazero.Runtime
	modules  cache.ModuleCache
	stdout   io.Writer
	stderr   io.Writer
	compiled map[string]wazero.CompiledModule
	mu       sync.Mutex
}

var _ pool.GuestHost = (*Host)(nil)

type config struct {
	modules    cache.ModuleCache
	stdout     io.Writer
	stderr     io.Writer
	memoryMax  uint32
	compileDir string
}

// Option configures a Host.
type Option func(*config)

// WithModuleCache resolves ModuleRef keys without inline bytes.
func WithModuleCache(mc cache.ModuleCache) Option {
	return func(c *config) { c.modules = mc }
}

// WithStdout sets the writer behind guest fd 1.
func WithStdout(w io.Writer) Option {
	return func(c *config) { c.stdout = w }
}

// WithStderr sets the writer behind guest fd 2.
func WithStderr(w io.Writer) Option {
	return func(c *config) { c.stderr = w }
}

// WithMemoryLimitPages caps every instance's memory, in 64 KiB pages.
func WithMemoryLimitPages(n uint32) Option {
	return func(c *config) { c.memoryMax = n }
}

// WithCompilationCacheDir persists compiled code in dir across processes.
func WithCompilationCacheDir(dir string) Option {
	return func(c *config) { c.compileDir = dir }
}

// New creates a host and instantiates WASI preview1 in its runtime.
func New(ctx context.Context, opts ...Option) (*Host, error) {
	cfg := config{stdout: io.Discard, stderr: io.Discard}
	for _, opt := range opts {
		opt(&cfg)
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.memoryMax > 0 {
		rc = rc.WithMemoryLimitPages(cfg.memoryMax)
	}
	if cfg.compileDir != "" {
		cc, err := wazero.NewCompilationCacheWithDir(cfg.compileDir)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseGuest, errors.KindNotInitialized, err, "compilation cache")
		}
		rc = rc.WithCompilationCache(cc)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	return &Host{
		runtime:  r,
		modules:  cfg.modules,
		stdout:   cfg.stdout,
		stderr:   cfg.stderr,
		compiled: make(map[string]wazero.CompiledModule),
	}, nil
}

// NewThread implements pool.GuestHost.
func (h *Host) NewThread(ctx context.Context, ec pool.ExecContext) (pool.GuestThread, error) {
	compiled, err := h.compile(ctx, ec.Module)
	if err != nil {
		return nil, err
	}

	if ec.MemoryPages > 0 {
		for _, mem := range compiled.ExportedMemories() {
			if mem.Min() > ec.MemoryPages {
				return nil, errors.New(errors.PhaseGuest, errors.KindInstantiation).
					Op("new-thread").
					Detail("module needs %d memory pages, limit is %d", mem.Min(), ec.MemoryPages).
					Build()
			}
		}
	}

	mc := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions().
		WithStdout(h.stdout).
		WithStderr(h.stderr).
		WithArgs(ec.Args...).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)

	mod, err := h.runtime.InstantiateModule(ctx, compiled, mc)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("guest thread created", zap.Uint32("thread", ec.ThreadID), zap.String("entry", ec.Entry))
	return &Thread{mod: mod, ec: ec}, nil
}

func (h *Host) compile(ctx context.Context, ref pool.ModuleRef) (wazero.CompiledModule, error) {
	data := ref.Bytes
	key := ref.Key
	if key == "" {
		if len(data) == 0 {
			return nil, errors.InvalidInput(errors.PhaseGuest, "module reference without key or bytes")
		}
		key = cache.Key(data)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.compiled[key]; ok {
		return c, nil
	}

	if len(data) == 0 {
		if h.modules == nil {
			return nil, errors.NotInitialized(errors.PhaseGuest, "module cache")
		}
		cached, ok, err := h.modules.Lookup(ctx, key)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseGuest, errors.KindNotFound, err, "module cache lookup")
		}
		if !ok {
			return nil, errors.NotFound(errors.PhaseGuest, "module", key)
		}
		data = cached
	}

	c, err := h.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.InvalidData(errors.PhaseGuest, "compile module", err)
	}
	h.compiled[key] = c
	return c, nil
}

// Close releases the runtime and every thread instantiated from it.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}
