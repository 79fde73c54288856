package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	wasihost "github.com/wippyai/wasi-host"
	"github.com/wippyai/wasi-host/config"
	"github.com/wippyai/wasi-host/errors"
	"github.com/wippyai/wasi-host/pool"
	"github.com/wippyai/wasi-host/runtime"
	"github.com/wippyai/wasi-host/terminal"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to YAML config file")
		wasmFile    = flag.String("wasm", "", "Path to core wasm module")
		pkgName     = flag.String("pkg", "", "Package to resolve through the registry")
		entry       = flag.String("entry", "", "Exported function to run (default _start)")
		argv        = flag.String("argv", "", "Guest arguments (comma-separated)")
		threadID    = flag.Uint("thread", 1, "Guest thread id")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		serveAddr   = flag.String("serve", "", "Serve the terminal over websocket on this address")
		logLevel    = flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	)
	flag.Parse()

	if (*wasmFile == "") == (*pkgName == "") {
		fmt.Fprintln(os.Stderr, "Usage: wasihost -wasm <file.wasm> [-entry name] [-argv a,b] [-i | -serve addr]")
		fmt.Fprintln(os.Stderr, "       wasihost -pkg <name> [-config wasihost.yaml]")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	wasihost.SetLogger(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	j := job{
		wasm:  *wasmFile,
		pkg:   *pkgName,
		entry: *entry,
		tid:   uint32(*threadID),
	}
	if *argv != "" {
		j.args = strings.Split(*argv, ",")
	}

	switch {
	case *interactive:
		err = runInteractive(ctx, rt, j)
	case *serveAddr != "":
		err = serve(ctx, rt, *serveAddr, j)
	default:
		err = run(ctx, rt, j)
	}

	if code, ok := exitCode(err); ok {
		os.Exit(int(code))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, level string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if level != "" {
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	// Guest output owns stdout.
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime.Runtime, error) {
	tty := terminal.NewOptions()
	tty.SetCols(cfg.Terminal.Cols)
	tty.SetRows(cfg.Terminal.Rows)
	if cfg.Terminal.ShouldDetectSize() {
		terminal.ApplyDetectedSize(tty, int(os.Stdout.Fd()))
	}
	return runtime.New(ctx, runtime.WithConfig(cfg), runtime.WithTerminalOptions(tty))
}

// job is the guest work selected on the command line.
type job struct {
	wasm  string
	pkg   string
	entry string
	args  []string
	tid   uint32
}

// execContext resolves the module bytes for the job.
func (j job) execContext(ctx context.Context, rt *runtime.Runtime) (pool.ExecContext, error) {
	ec := pool.ExecContext{Entry: j.entry, ThreadID: j.tid}

	if j.pkg != "" {
		meta, err := rt.Source().Resolve(ctx, j.pkg)
		if err != nil {
			return ec, err
		}
		data, err := rt.PackageLoader().Load(ctx, meta)
		if err != nil {
			return ec, err
		}
		if ec.Entry == "" {
			ec.Entry = meta.Entry
		}
		ec.Module = pool.ModuleRef{Bytes: data}
		ec.Args = append([]string{j.pkg}, j.args...)
		return ec, nil
	}

	data, err := os.ReadFile(j.wasm)
	if err != nil {
		return ec, fmt.Errorf("read file: %w", err)
	}
	ec.Module = pool.ModuleRef{Bytes: data}
	ec.Args = append([]string{j.wasm}, j.args...)
	return ec, nil
}

func (j job) run(ctx context.Context, rt *runtime.Runtime) error {
	ec, err := j.execContext(ctx, rt)
	if err != nil {
		return err
	}
	_, err = rt.Execute(ec).Await(ctx)
	return err
}

// run executes the job with terminal output rendered to stdout.
func run(ctx context.Context, rt *runtime.Runtime, j job) error {
	rendered := make(chan error, 1)
	go func() {
		rendered <- terminal.NewWriterRenderer(os.Stdout).Render(ctx, rt.Terminal())
	}()

	err := j.run(ctx, rt)
	if cerr := rt.Close(context.Background()); cerr != nil && err == nil {
		err = cerr
	}
	if rerr := <-rendered; rerr != nil && err == nil && !stderrors.Is(rerr, context.Canceled) {
		err = rerr
	}
	return err
}

func exitCode(err error) (uint32, bool) {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindExit {
		return 0, false
	}
	code, ok := e.Value.(uint32)
	return code, ok
}
