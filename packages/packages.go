package packages

import (
	"context"
	"sync"

	"github.com/wippyai/wasi-host/errors"
)

// Metadata describes a resolvable package.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	// Hash is the blake3 digest of the package binary, when known, as
	// "blake3:<hex>" or bare hex. Other formats disable the cache lookup.
	Hash string `json:"hash,omitempty"`
	// Entry is the exported function to run; empty means "_start".
	Entry string `json:"entry,omitempty"`
}

// Source resolves package names.
type Source interface {
	Resolve(ctx context.Context, name string) (*Metadata, error)
}

// Loader fetches the module for resolved metadata.
type Loader interface {
	Load(ctx context.Context, meta *Metadata) ([]byte, error)
}

// MapSource is a Source over a fixed set of packages.
type MapSource struct {
	pkgs map[string]*Metadata
	mu   sync.RWMutex
}

var _ Source = (*MapSource)(nil)

// NewMapSource creates a source serving pkgs by name.
func NewMapSource(pkgs ...*Metadata) *MapSource {
	s := &MapSource{pkgs: make(map[string]*Metadata, len(pkgs))}
	for _, p := range pkgs {
		s.pkgs[p.Name] = p
	}
	return s
}

// Add registers or replaces a package.
func (s *MapSource) Add(meta *Metadata) {
	s.mu.Lock()
	s.pkgs[meta.Name] = meta
	s.mu.Unlock()
}

// Resolve implements Source.
func (s *MapSource) Resolve(_ context.Context, name string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.pkgs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhasePackage, "package", name)
	}
	return meta, nil
}
