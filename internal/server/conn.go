package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is the slice of a websocket connection the session handlers need.
// Handlers and tests never touch a raw socket.
type Conn interface {
	// Key identifies the connection for reverse lookups in the registry.
	Key() uint64
	WriteJSON(v any) error
	WriteText(s string) error
	// ClosePolicy terminates the connection with a protocol-level close code.
	ClosePolicy(code int, reason string) error
}

var nextConnKey atomic.Uint64

type wsConn struct {
	key  uint64
	mu   sync.Mutex
	sock *websocket.Conn
}

func newWSConn(sock *websocket.Conn) *wsConn {
	return &wsConn{key: nextConnKey.Add(1), sock: sock}
}

func (c *wsConn) Key() uint64 { return c.key }

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.sock.WriteJSON(v)
}

func (c *wsConn) WriteText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.sock.WriteMessage(websocket.TextMessage, []byte(s))
}

func (c *wsConn) ClosePolicy(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Now().Add(writeWait)
	_ = c.sock.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return c.sock.Close()
}
