// Package vfs defines the virtual file contract the guest engine uses for
// pseudo-files such as the terminal and the diagnostic log.
package vfs

import (
	"context"

	"github.com/wippyai/wasi-host/errors"
)

// ErrWouldBlock reports that no data is ready and the caller should poll again.
var ErrWouldBlock = &errors.Error{
	Phase:  errors.PhaseIO,
	Kind:   errors.KindWouldBlock,
	Detail: "operation would block",
}

// File is a virtual file exposed to the guest engine. Timestamps are
// nanoseconds since the Unix epoch.
type File interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Flush(ctx context.Context) error
	Close() error

	Size() uint64
	SetLen(n uint64) error
	LastAccessed() uint64
	LastModified() uint64
	CreatedTime() uint64
	Unlink(ctx context.Context) error

	// ReadReady reports how many bytes can be read without blocking.
	ReadReady() (int, error)
	// WriteReady reports how many bytes can be written without blocking.
	WriteReady() (int, error)
}

// WriteChunk is the write readiness reported by sink-only pseudo-files.
const WriteChunk = 8192

// Sink implements the metadata and readiness half of File for write-only
// pseudo-files: no size, no timestamps, seeks land at 0, truncation and
// unlink succeed without effect, reads would block.
type Sink struct{}

func (Sink) Read([]byte) (int, error)       { return 0, ErrWouldBlock }
func (Sink) Seek(int64, int) (int64, error) { return 0, nil }
func (Sink) Flush(context.Context) error    { return nil }
func (Sink) Close() error                   { return nil }
func (Sink) Size() uint64                   { return 0 }
func (Sink) SetLen(uint64) error            { return nil }
func (Sink) LastAccessed() uint64           { return 0 }
func (Sink) LastModified() uint64           { return 0 }
func (Sink) CreatedTime() uint64            { return 0 }
func (Sink) Unlink(context.Context) error   { return nil }
func (Sink) ReadReady() (int, error)        { return 0, ErrWouldBlock }
func (Sink) WriteReady() (int, error)       { return WriteChunk, nil }
