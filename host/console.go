package host

import (
	"strings"

	"go.uber.org/zap"
)

// Console receives decoded guest diagnostic text.
type Console interface {
	Log(text string)
}

// ZapConsole forwards guest diagnostics to a zap logger at info level, one
// entry per line.
type ZapConsole struct {
	logger *zap.Logger
}

// NewZapConsole creates a console writing to l. A nil logger discards output.
func NewZapConsole(l *zap.Logger) *ZapConsole {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapConsole{logger: l.Named("guest")}
}

// Log implements Console.
func (c *ZapConsole) Log(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\r\n"), "\n") {
		c.logger.Info(strings.TrimRight(line, "\r"))
	}
}

// ConsoleFunc adapts a function to Console.
type ConsoleFunc func(text string)

// Log implements Console.
func (f ConsoleFunc) Log(text string) { f(text) }
