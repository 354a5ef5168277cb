package network

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by a Conn after either side closed it.
var ErrClosed = errors.New("network: connection closed")

// Conn is a message-oriented connection. ReadMessage blocks and must be
// called from one goroutine; WriteMessage is safe for concurrent use.
type Conn interface {
	ReadMessage() (Message, error)
	WriteMessage(m Message) error
	Close() error
}

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 1 << 20 // 1MB
)

// wsConn adapts a gorilla websocket to Conn using binary frames.
type wsConn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewWSConn wraps an established websocket.
func NewWSConn(ws *websocket.Conn) Conn {
	ws.SetReadLimit(wsReadLimit)
	return &wsConn{ws: ws}
}

func (c *wsConn) ReadMessage() (Message, error) {
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Message{}, ErrClosed
		}
		return Message{}, fmt.Errorf("network: read: %w", err)
	}
	if typ != websocket.BinaryMessage {
		return Message{}, fmt.Errorf("network: read: unexpected frame type %d", typ)
	}
	return Decode(data)
}

func (c *wsConn) WriteMessage(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("network: write: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
