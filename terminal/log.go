package terminal

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/host"
	"github.com/wippyai/wasi-host/pool"
	"github.com/wippyai/wasi-host/vfs"
)

// Spawner queues shared tasks. *pool.Pool implements it.
type Spawner interface {
	SpawnShared(t pool.SharedTask) error
}

// Log is the guest's diagnostic output. Each write is decoded lossily and
// delivered to the host console from a shared worker.
type Log struct {
	vfs.Sink
	pool    Spawner
	console host.Console
}

var _ vfs.File = (*Log)(nil)

// NewLog creates a diagnostic log file.
func NewLog(p Spawner, console host.Console) *Log {
	return &Log{pool: p, console: console}
}

// Write always reports the full length as written. Each maximal invalid
// UTF-8 subsequence is replaced with one U+FFFD.
func (l *Log) Write(p []byte) (int, error) {
	text := decodeLossy(p)

	err := l.pool.SpawnShared(pool.SharedTask{
		Run: func(*pool.Loop) { l.console.Log(text) },
	})
	if err != nil {
		Logger().Warn("failed to forward guest log", zap.Error(err))
	}
	return len(p), nil
}

// decodeLossy substitutes maximal subparts: an invalid sequence is replaced
// by one U+FFFD per longest prefix of a well-formed sequence, or per byte
// when no prefix is well-formed.
func decodeLossy(p []byte) string {
	if utf8.Valid(p) {
		return string(p)
	}

	var b strings.Builder
	b.Grow(len(p) + 8)
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		if r != utf8.RuneError || size > 1 {
			b.Write(p[:size])
			p = p[size:]
			continue
		}
		b.WriteRune(utf8.RuneError)
		p = p[invalidPrefixLen(p):]
	}
	return b.String()
}

// invalidPrefixLen returns the length of the maximal subpart starting at
// p[0], which is known not to begin a well-formed sequence.
func invalidPrefixLen(p []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch c := p[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}

	n := 1
	for ; n <= need && n < len(p); n++ {
		if p[n] < lo || p[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}
