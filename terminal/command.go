package terminal

import (
	"context"
	"sync"

	"github.com/wippyai/wasi-host/errors"
)

// CommandKind identifies a render command.
type CommandKind uint8

const (
	// CommandPrint draws Text at the cursor.
	CommandPrint CommandKind = iota
	// CommandCls clears the screen.
	CommandCls
)

func (k CommandKind) String() string {
	switch k {
	case CommandPrint:
		return "print"
	case CommandCls:
		return "cls"
	default:
		return "unknown"
	}
}

// Command is one instruction for the renderer.
type Command struct {
	Text string
	Kind CommandKind
}

// ErrChannelClosed is returned by Recv once the channel is closed and drained.
var ErrChannelClosed = errors.Closed(errors.PhaseIO, "render channel")

// Channel is an unbounded FIFO of render commands. Sends never block; a
// closed channel silently discards them.
type Channel struct {
	signal chan struct{}
	items  []Command
	mu     sync.Mutex
	closed bool
}

// NewChannel creates an open channel.
func NewChannel() *Channel {
	return &Channel{signal: make(chan struct{}, 1)}
}

// Send queues c. It reports false if the channel is closed.
func (c *Channel) Send(cmd Command) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items, cmd)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
	return true
}

// TryRecv returns the oldest command without blocking.
func (c *Channel) TryRecv() (Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Command{}, false
	}
	cmd := c.items[0]
	c.items[0] = Command{}
	c.items = c.items[1:]
	return cmd, true
}

// Recv blocks until a command is available, the channel is closed and
// drained, or ctx is done.
func (c *Channel) Recv(ctx context.Context) (Command, error) {
	for {
		if cmd, ok := c.TryRecv(); ok {
			return cmd, nil
		}

		c.mu.Lock()
		closed := c.closed && len(c.items) == 0
		c.mu.Unlock()
		if closed {
			return Command{}, ErrChannelClosed
		}

		select {
		case <-c.signal:
		case <-ctx.Done():
			return Command{}, ctx.Err()
		}
	}
}

// Len returns the number of queued commands.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops accepting commands. Queued commands can still be received.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}
