// Package wasihost runs WASI guest modules on a pool of host workers and
// provides the services those guests reach through the host: a terminal,
// timers, outbound HTTP and a package loader.
//
// # Architecture Overview
//
//	wasihost/          Root package with the logging switch
//	├── runtime/       Facade that builds and owns every service below
//	├── pool/          Shared event loops, dedicated workers, guest threads
//	├── oneshot/       Single-value futures used for every async reply
//	├── tasks/         Task manager: sleep and spawn on the pool
//	├── httpbridge/    HTTP request/response bridge for guests
//	├── terminal/      Terminal options, render channel, stdout and log files
//	├── vfs/           Virtual file contract shared by the terminal files
//	├── guest/         wazero host that instantiates guest threads
//	├── cache/         Compiled module cache (memory and SQLite tiers)
//	├── packages/      Package metadata sources and module loaders
//	├── host/          Host capabilities: timer, console, fetch
//	├── config/        YAML configuration
//	└── errors/        Structured error types
//
// # Quick Start
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	go terminal.NewWriterRenderer(os.Stdout).Render(ctx, rt.Terminal())
//
//	fut := rt.Execute(pool.ExecContext{
//	    Module:   pool.ModuleRef{Bytes: wasmBytes},
//	    ThreadID: 1,
//	})
//	if _, err := fut.Await(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Threads
//
// Every guest execution names a thread id. The first task for an id creates a
// dedicated worker and instantiates the module there; later tasks for the same
// id reuse that instance, so guest globals and memory persist between calls.
//
// # Logging
//
// All packages log through zap and default to a no-op logger. SetLogger
// enables logging everywhere at once.
package wasihost
