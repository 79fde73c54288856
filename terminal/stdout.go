package terminal

import (
	"bytes"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/vfs"
)

var (
	lf   = []byte("\n")
	crlf = []byte("\r\n")
)

// Stdout is the guest's terminal output. Writes become CommandPrint commands
// on the render channel.
type Stdout struct {
	vfs.Sink
	opts *Options
	ch   *Channel
}

var _ vfs.File = (*Stdout)(nil)

// NewStdout creates a terminal output file sending to ch.
func NewStdout(opts *Options, ch *Channel) *Stdout {
	return &Stdout{opts: opts, ch: ch}
}

// Write converts p and sends it to the renderer. It always reports the full
// length as written: text that is not valid UTF-8 after conversion is dropped.
func (s *Stdout) Write(p []byte) (int, error) {
	buf := p
	if s.opts.LineFeeds() {
		buf = bytes.ReplaceAll(p, lf, crlf)
	}

	if !utf8.Valid(buf) {
		Logger().Debug("dropping non-utf8 terminal output", zap.Int("bytes", len(p)))
		return len(p), nil
	}
	if len(buf) > 0 {
		s.ch.Send(Command{Kind: CommandPrint, Text: string(buf)})
	}
	return len(p), nil
}

// Cls asks the renderer to clear the screen.
func (s *Stdout) Cls() {
	s.ch.Send(Command{Kind: CommandCls})
}
