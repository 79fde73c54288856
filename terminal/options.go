package terminal

import "sync"

// Default terminal size.
const (
	DefaultCols = 80
	DefaultRows = 25
)

// Options holds the terminal configuration.
type Options struct {
	mu            sync.RWMutex
	cols          uint32
	rows          uint32
	echo          bool
	lineBuffering bool
	lineFeeds     bool
}

// NewOptions returns options with the default size and echo, line buffering
// and line feed translation enabled.
func NewOptions() *Options {
	o := &Options{cols: DefaultCols, rows: DefaultRows}
	o.Reset()
	return o
}

// Reset enables echo, line buffering and line feed translation. The size is
// left untouched.
func (o *Options) Reset() {
	o.mu.Lock()
	o.echo = true
	o.lineBuffering = true
	o.lineFeeds = true
	o.mu.Unlock()
}

func (o *Options) Cols() uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cols
}

func (o *Options) SetCols(v uint32) {
	o.mu.Lock()
	o.cols = v
	o.mu.Unlock()
}

func (o *Options) Rows() uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.rows
}

func (o *Options) SetRows(v uint32) {
	o.mu.Lock()
	o.rows = v
	o.mu.Unlock()
}

func (o *Options) Echo() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.echo
}

func (o *Options) SetEcho(v bool) {
	o.mu.Lock()
	o.echo = v
	o.mu.Unlock()
}

func (o *Options) LineBuffering() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lineBuffering
}

func (o *Options) SetLineBuffering(v bool) {
	o.mu.Lock()
	o.lineBuffering = v
	o.mu.Unlock()
}

// LineFeeds reports whether "\n" is written as "\r\n".
func (o *Options) LineFeeds() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lineFeeds
}

func (o *Options) SetLineFeeds(v bool) {
	o.mu.Lock()
	o.lineFeeds = v
	o.mu.Unlock()
}

// Snapshot is a consistent copy of Options.
type Snapshot struct {
	Cols          uint32
	Rows          uint32
	Echo          bool
	LineBuffering bool
	LineFeeds     bool
}

// Snapshot reads every field under one lock.
func (o *Options) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Snapshot{
		Cols:          o.cols,
		Rows:          o.rows,
		Echo:          o.echo,
		LineBuffering: o.lineBuffering,
		LineFeeds:     o.lineFeeds,
	}
}

// Apply writes every field under one lock.
func (o *Options) Apply(s Snapshot) {
	o.mu.Lock()
	o.cols = s.Cols
	o.rows = s.Rows
	o.echo = s.Echo
	o.lineBuffering = s.LineBuffering
	o.lineFeeds = s.LineFeeds
	o.mu.Unlock()
}
