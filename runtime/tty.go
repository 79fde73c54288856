package runtime

import "github.com/wippyai/wasi-host/terminal"

// Fixed values reported by the TTY bridge.
const (
	ttyWidth  = 800
	ttyHeight = 600
)

// TTYState is the terminal state exchanged with the guest engine.
type TTYState struct {
	Cols         uint32
	Rows         uint32
	Width        uint32
	Height       uint32
	StdinTTY     bool
	StdoutTTY    bool
	StderrTTY    bool
	Echo         bool
	LineBuffered bool
	LineFeeds    bool
}

// TTYBridge lets the guest engine read and change terminal state.
type TTYBridge interface {
	Reset()
	Get() TTYState
	Set(s TTYState)
}

var _ TTYBridge = (*Runtime)(nil)

// Reset enables echo, line buffering and line feeds.
func (r *Runtime) Reset() {
	r.tty.Reset()
}

// Get returns the current terminal state.
func (r *Runtime) Get() TTYState {
	s := r.tty.Snapshot()
	return TTYState{
		Cols:         s.Cols,
		Rows:         s.Rows,
		Width:        ttyWidth,
		Height:       ttyHeight,
		StdinTTY:     true,
		StdoutTTY:    true,
		StderrTTY:    true,
		Echo:         s.Echo,
		LineBuffered: s.LineBuffering,
		LineFeeds:    s.LineFeeds,
	}
}

// Set applies size, echo, line buffering and line feeds. Width, Height and
// the tty flags are ignored.
func (r *Runtime) Set(s TTYState) {
	r.tty.Apply(terminal.Snapshot{
		Cols:          s.Cols,
		Rows:          s.Rows,
		Echo:          s.Echo,
		LineBuffering: s.LineBuffered,
		LineFeeds:     s.LineFeeds,
	})
}
