// Package cache stores guest module binaries by content key.
//
// ModuleCache is the contract the runtime hands to the guest engine. Keys are
// produced by Key, a blake3 digest of the module bytes, so identical modules
// share an entry regardless of where they were loaded from.
//
// Three implementations are provided:
//
//   - Memory, a bounded LRU kept in process memory.
//   - SQLite, a persistent tier in a single sqlite file.
//   - Tiered, which consults a fast tier before a slow one and fills the fast
//     tier on slow-tier hits. Failures of the slow tier are logged and treated
//     as misses, so the fast tier keeps working on its own.
//
// All implementations are safe for concurrent use.
package cache
