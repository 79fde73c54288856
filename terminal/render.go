package terminal

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// clearScreen is the ANSI sequence renderers emit for CommandCls.
const clearScreen = "\x1b[2J\x1b[H"

// Renderer drains a render channel until it is closed or ctx is done.
type Renderer interface {
	Render(ctx context.Context, ch *Channel) error
}

// WriterRenderer writes commands to an io.Writer such as os.Stdout.
type WriterRenderer struct {
	w io.Writer
}

// NewWriterRenderer creates a renderer writing to w.
func NewWriterRenderer(w io.Writer) *WriterRenderer {
	return &WriterRenderer{w: w}
}

// Render implements Renderer. It returns nil once ch is closed and drained.
func (r *WriterRenderer) Render(ctx context.Context, ch *Channel) error {
	for {
		cmd, err := ch.Recv(ctx)
		if stderrors.Is(err, ErrChannelClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(r.w, cmd.render()); err != nil {
			return err
		}
	}
}

func (c Command) render() string {
	if c.Kind == CommandCls {
		return clearScreen
	}
	return c.Text
}

// WebSocketRenderer streams commands to one websocket client as text
// messages. A Cls command is sent as the ANSI clear sequence.
type WebSocketRenderer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWebSocketRenderer wraps an accepted connection.
func NewWebSocketRenderer(conn *websocket.Conn) *WebSocketRenderer {
	return &WebSocketRenderer{conn: conn, writeTimeout: 10 * time.Second}
}

// Render implements Renderer. The connection is closed normally once ch is
// closed and drained.
func (r *WebSocketRenderer) Render(ctx context.Context, ch *Channel) error {
	// Reads are only used to notice the client going away.
	ctx = r.conn.CloseRead(ctx)

	for {
		cmd, err := ch.Recv(ctx)
		if stderrors.Is(err, ErrChannelClosed) {
			return r.conn.Close(websocket.StatusNormalClosure, "terminal closed")
		}
		if err != nil {
			_ = r.conn.Close(websocket.StatusGoingAway, "")
			return err
		}

		wctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
		err = r.conn.Write(wctx, websocket.MessageText, []byte(cmd.render()))
		cancel()
		if err != nil {
			return err
		}
	}
}

// WebSocketHandler upgrades requests and renders ch to the client. Only one
// client should be attached to a channel at a time: commands are consumed,
// not broadcast.
func WebSocketHandler(ch *Channel, opts *websocket.AcceptOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := websocket.Accept(w, req, opts)
		if err != nil {
			Logger().Warn("websocket accept failed", zap.Error(err))
			return
		}
		if err := NewWebSocketRenderer(conn).Render(req.Context(), ch); err != nil {
			Logger().Debug("websocket renderer stopped", zap.Error(err))
		}
	})
}
