// Package host defines the primitives the embedding environment provides to
// the runtime: a timer, an HTTP fetch operation and a console sink for guest
// diagnostics.
//
// Every primitive is an interface so the runtime can be hosted on top of a
// different environment. The package also ships default implementations
// backed by the Go runtime:
//
//   - SystemTimer waits on time.Timer.
//   - HTTPFetcher performs requests with net/http and, when asked, decodes
//     gzip and brotli response bodies.
//   - ZapConsole writes guest log text through a zap logger.
//
// Primitives may block. Callers on a shared worker loop must run them through
// pool.Await so the loop keeps turning while the host works.
package host
