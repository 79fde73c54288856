// Package guest runs WebAssembly guest code on guest workers.
//
// Host implements pool.GuestHost with wazero. The first task for a thread id
// makes the pool call NewThread on that thread's worker: the module named by
// the ExecContext is resolved (inline bytes or the module cache), compiled
// once per content key, and instantiated with WASI preview1. The resulting
// Thread keeps the instance, its memory and globals alive for every later
// task on the same thread id until the pool releases it.
//
// Start functions are not run at instantiation. Thread.Run calls the
// ExecContext entry (default "_start") explicitly so an exit code can be
// observed: proc_exit(0) is success, any other code is an exit error.
//
// Guest stdout and stderr are wired to the writers given to New, normally
// the terminal Stdout and Log pseudo-files.
//
// Example:
//
//	h, err := guest.New(ctx, guest.WithStdout(rt.Stdout()), guest.WithStderr(rt.Log()))
//	if err != nil {
//	    return err
//	}
//	defer h.Close(ctx)
//
//	p := pool.New(pool.Config{Guests: h})
//	fut := guest.Execute(p, pool.ExecContext{ThreadID: 1, Module: pool.ModuleRef{Bytes: wasm}})
//	_, err = fut.Await(ctx)
package guest
