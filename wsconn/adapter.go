// Package wsconn adapts a gorilla/websocket connection to the
// io.ReadWriteCloser a handshake orchestrator or secured channel expects,
// the same pattern this corpus's controller client uses to dial and
// maintain its WebSocket session.
package wsconn

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const dialTimeout = 10 * time.Second

// Conn adapts a *websocket.Conn to io.ReadWriteCloser by treating every
// message as a raw binary frame and reassembling partial reads across
// message boundaries, so callers can Read/Write arbitrary byte counts the
// way they would against a TCP socket.
type Conn struct {
	ws      *websocket.Conn
	readBuf []byte
}

// Dial opens a WebSocket connection to url and wraps it as a Conn.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return New(ws), nil
}

// New wraps an already-established *websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Read implements io.Reader, pulling a new WebSocket message whenever the
// buffered data from a prior message has been exhausted.
func (c *Conn) Read(p []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.readBuf = data
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// Write implements io.Writer, sending p as a single binary WebSocket
// message.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetDeadline sets both the read and write deadlines on the underlying
// connection, letting this type satisfy the deadline-aware collaborator
// interfaces the handshake orchestrator and secured channel look for.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

var _ io.ReadWriteCloser = (*Conn)(nil)
