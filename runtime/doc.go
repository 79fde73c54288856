// Package runtime composes the host services a sandboxed guest engine needs
// into one Runtime.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, runtime.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Render guest output
//	go terminal.NewWriterRenderer(os.Stdout).Render(ctx, rt.Terminal())
//
//	// Run a module on guest thread 1
//	_, err = rt.Execute(pool.ExecContext{ThreadID: 1, Module: pool.ModuleRef{Bytes: wasm}}).Await(ctx)
//
// # Components
//
// Every accessor returns a shared handle; the Runtime owns them all:
//
//	TaskManager()    sleeping and spawning work on the worker pool
//	HTTPClient()     outbound HTTP through the host fetch primitive
//	TTY()            terminal options, also reachable through the TTYBridge methods
//	Terminal()       render channel fed by Stdout()
//	Stdout(), Log()  the guest's terminal and diagnostic pseudo-files
//	ModuleCache()    in-memory tier, plus sqlite when cache.path is set
//	Source()         package name resolution
//	PackageLoader()  package download through HTTPClient()
//	Networking()     no sockets; every operation is unsupported
//
// # TTY bridge
//
// Runtime implements TTYBridge. Get reports the terminal options together
// with fixed values: an 800x600 pixel screen and all three standard streams
// being terminals. Set updates size, echo, line buffering and line feeds.
//
// # Ownership
//
// Close shuts the pool down first so no task touches a component after it is
// released, then closes the guest host, the persistent cache and finally the
// render channel, which ends any renderer draining it. A pool passed with
// WithPool is not closed.
package runtime
