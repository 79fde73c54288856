// Package terminal virtualizes the guest's terminal.
//
// Two pseudo-files stand in for the guest's standard streams:
//
//   - Stdout converts guest output into render commands. When line feed
//     translation is on, every "\n" becomes "\r\n". Output that is not valid
//     UTF-8 is discarded, but the write still reports success.
//   - Log decodes guest diagnostics lossily, replacing invalid sequences with
//     U+FFFD, and forwards them to the host console from a shared worker.
//
// Both files are write-only: they report no size or timestamps, seek to 0,
// are always ready to accept 8192 bytes, and reads would block.
//
// # Render channel
//
// Stdout does not draw anything itself. It sends Commands on a Channel, an
// unbounded queue whose sends never block. A renderer drains the channel:
// WriterRenderer writes to an io.Writer, WebSocketRenderer streams to a
// websocket client. CommandCls asks the renderer to clear the screen.
//
// # Options
//
// Options is the terminal configuration (size, echo, line buffering, line
// feed translation). It is shared by handle between the runtime and the
// pseudo-files and is safe for concurrent use.
package terminal
