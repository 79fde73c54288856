package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/config"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/guest"
	"github.com/wippyai/wasi-host/host"
	"github.com/wippyai/wasi-host/httpbridge"
	"github.com/wippyai/wasi-host/oneshot"
	"github.com/wippyai/wasi-host/packages"
	"github.com/wippyai/wasi-host/pool"
	"github.com/wippyai/wasi-host/tasks"
	"github.com/wippyai/wasi-host/terminal"
)

// Runtime owns the worker pool and every host service built on it.
type Runtime struct {
	pool     *pool.Pool
	tasks    *tasks.WorkerManager
	http     *httpbridge.WorkerClient
	tty      *terminal.Options
	term     *terminal.Channel
	stdout   *terminal.Stdout
	log      *terminal.Log
	cache    cache.ModuleCache
	loader   packages.Loader
	source   packages.Source
	guests   *guest.Host
	persist  *cache.SQLite
	net      Networking
	cfg      *config.Config
	ownsPool bool
}

type options struct {
	cfg     *config.Config
	pool    *pool.Pool
	fetcher host.Fetcher
	timer   host.Timer
	console host.Console
	cache   cache.ModuleCache
	source  packages.Source
	loader  packages.Loader
	tty     *terminal.Options
}

// Option configures a Runtime.
type Option func(*options)

// WithConfig replaces config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithPool runs on an existing pool. The runtime does not close it, and guest
// execution only works if the pool was created with a GuestHost.
func WithPool(p *pool.Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithFetcher replaces the net/http fetcher.
func WithFetcher(f host.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithTimer replaces the system timer.
func WithTimer(t host.Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithConsole replaces the zap console that receives guest diagnostics.
func WithConsole(c host.Console) Option {
	return func(o *options) { o.console = c }
}

// WithModuleCache replaces the configured cache tiers.
func WithModuleCache(mc cache.ModuleCache) Option {
	return func(o *options) { o.cache = mc }
}

// WithPackageSource replaces the registry source.
func WithPackageSource(s packages.Source) Option {
	return func(o *options) { o.source = s }
}

// WithPackageLoader replaces the HTTP loader.
func WithPackageLoader(l packages.Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithTerminalOptions shares existing terminal options instead of creating them.
func WithTerminalOptions(t *terminal.Options) Option {
	return func(o *options) { o.tty = t }
}

// New builds a runtime. Without WithConfig, config.Default() is used.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	cfg := o.cfg

	r := &Runtime{
		cfg: cfg,
		net: NoNetworking{},
	}

	r.tty = o.tty
	if r.tty == nil {
		r.tty = terminal.NewOptions()
		r.tty.SetCols(cfg.Terminal.Cols)
		r.tty.SetRows(cfg.Terminal.Rows)
	}
	r.term = terminal.NewChannel()
	r.stdout = terminal.NewStdout(r.tty, r.term)

	console := o.console
	if console == nil {
		console = host.NewZapConsole(Logger())
	}
	r.log = terminal.NewLog(lateSpawner{r}, console)

	if err := r.initCache(ctx, o.cache); err != nil {
		return nil, err
	}

	r.pool = o.pool
	if r.pool == nil {
		g, err := guest.New(ctx,
			guest.WithModuleCache(r.cache),
			guest.WithStdout(r.stdout),
			guest.WithStderr(r.log))
		if err != nil {
			r.closePersist()
			return nil, err
		}
		r.guests = g
		r.pool = pool.New(pool.Config{
			SharedWorkers: cfg.Pool.SharedWorkers,
			MaxWorkers:    cfg.Pool.MaxDedicated,
			QueueLimit:    cfg.Pool.QueueLimit,
			Guests:        g,
		})
		r.ownsPool = true
	}

	topts := []tasks.Option{tasks.WithParallelism(cfg.Pool.Parallelism)}
	if o.timer != nil {
		topts = append(topts, tasks.WithTimer(o.timer))
	}
	r.tasks = tasks.NewWorkerManager(r.pool, topts...)

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = host.NewHTTPFetcher(
			host.WithTimeout(cfg.HTTP.Timeout),
			host.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes))
	}
	r.http = httpbridge.NewWorkerClient(r.pool, fetcher, httpbridge.WithDefaultCORSProxy(cfg.HTTP.CORSProxy))

	r.source = o.source
	if r.source == nil {
		if cfg.Registry.Endpoint != "" {
			r.source = packages.NewRegistrySource(r.http, cfg.Registry.Endpoint)
		} else {
			r.source = packages.NewMapSource()
		}
	}
	r.loader = o.loader
	if r.loader == nil {
		r.loader = packages.NewHTTPLoader(r.http, r.cache)
	}

	Logger().Debug("runtime started",
		zap.Int("shared_workers", r.pool.Config().SharedWorkers),
		zap.Bool("persistent_cache", r.persist != nil))
	return r, nil
}

func (r *Runtime) initCache(ctx context.Context, mc cache.ModuleCache) error {
	if mc != nil {
		r.cache = mc
		return nil
	}

	mem := cache.NewMemory(r.cfg.Cache.MemoryEntries)
	if r.cfg.Cache.Path == "" {
		r.cache = mem
		return nil
	}

	db, err := cache.OpenSQLite(ctx, r.cfg.Cache.Path)
	if err != nil {
		return err
	}
	r.persist = db
	r.cache = cache.NewTiered(mem, db)
	return nil
}

func (r *Runtime) closePersist() {
	if r.persist != nil {
		if err := r.persist.Close(); err != nil {
			Logger().Warn("failed to close module cache", zap.Error(err))
		}
	}
}

// lateSpawner lets components built before the pool queue onto it.
type lateSpawner struct{ r *Runtime }

func (s lateSpawner) SpawnShared(t pool.SharedTask) error {
	if s.r.pool == nil {
		return errors.Thread("spawn-shared", errors.NotInitialized(errors.PhaseSchedule, "pool"))
	}
	return s.r.pool.SpawnShared(t)
}

// Close releases everything the runtime owns.
func (r *Runtime) Close(ctx context.Context) error {
	if r.ownsPool {
		r.pool.Close()
	}

	var first error
	if r.guests != nil {
		if err := r.guests.Close(ctx); err != nil {
			first = err
		}
	}
	if r.persist != nil {
		if err := r.persist.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.term.Close()
	return first
}

func (r *Runtime) Config() *config.Config         { return r.cfg }
func (r *Runtime) Pool() *pool.Pool               { return r.pool }
func (r *Runtime) TaskManager() tasks.Manager     { return r.tasks }
func (r *Runtime) HTTPClient() httpbridge.Client  { return r.http }
func (r *Runtime) TTY() *terminal.Options         { return r.tty }
func (r *Runtime) Terminal() *terminal.Channel    { return r.term }
func (r *Runtime) Stdout() *terminal.Stdout       { return r.stdout }
func (r *Runtime) Log() *terminal.Log             { return r.log }
func (r *Runtime) ModuleCache() cache.ModuleCache { return r.cache }
func (r *Runtime) PackageLoader() packages.Loader { return r.loader }
func (r *Runtime) Source() packages.Source        { return r.source }
func (r *Runtime) Networking() Networking         { return r.net }

// Execute runs ec on its guest thread.
func (r *Runtime) Execute(ec pool.ExecContext) *oneshot.Future[struct{}] {
	return guest.Execute(r.tasks, ec)
}

// RunPackage resolves name, loads its module into the cache and runs its
// entry on guest thread tid with args as argv.
func (r *Runtime) RunPackage(ctx context.Context, name string, tid uint32, args ...string) error {
	meta, err := r.source.Resolve(ctx, name)
	if err != nil {
		return err
	}
	data, err := r.loader.Load(ctx, meta)
	if err != nil {
		return err
	}

	ec := pool.ExecContext{
		Module:   pool.ModuleRef{Key: cache.Key(data), Bytes: data},
		Entry:    meta.Entry,
		Args:     append([]string{name}, args...),
		ThreadID: tid,
	}
	_, err = r.Execute(ec).Await(ctx)
	return err
}
