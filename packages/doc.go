// Package packages resolves package names to guest modules.
//
// A Source answers "which module is package X": RegistrySource asks a
// registry endpoint over the runtime's HTTP client, MapSource serves a fixed
// set. A Loader turns the resolved Metadata into module bytes: HTTPLoader
// downloads them through the same HTTP client and keeps them in a module
// cache.
//
// Package integrity is not verified.
package packages
