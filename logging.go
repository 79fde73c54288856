package wasihost

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasi-host/cache"
	"github.com/wippyai/wasi-host/guest"
	"github.com/wippyai/wasi-host/httpbridge"
	"github.com/wippyai/wasi-host/pool"
	"github.com/wippyai/wasi-host/runtime"
	"github.com/wippyai/wasi-host/tasks"
	"github.com/wippyai/wasi-host/terminal"
)

// SetLogger installs l in every package, each under its own name.
// Call it before creating a runtime.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	pool.SetLogger(l.Named("pool"))
	tasks.SetLogger(l.Named("tasks"))
	terminal.SetLogger(l.Named("terminal"))
	httpbridge.SetLogger(l.Named("http"))
	cache.SetLogger(l.Named("cache"))
	guest.SetLogger(l.Named("guest"))
	runtime.SetLogger(l.Named("runtime"))
}
