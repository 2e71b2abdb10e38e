package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Connection wraps one socket. Writes are serialised; reads belong to the
// listener's goroutine.
type Connection struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	sessionMu sync.RWMutex
	sessionID string
	closed    bool
	closeOnce sync.Once
}

func newConnection(id string, conn *websocket.Conn, writeTimeout time.Duration) *Connection {
	return &Connection{id: id, conn: conn, writeTimeout: writeTimeout}
}

// ID is the server-assigned connection id.
func (c *Connection) ID() string {
	return c.id
}

// SessionID is the session most recently bound to the connection.
func (c *Connection) SessionID() string {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.sessionID
}

func (c *Connection) bind(sessionID string) bool {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	changed := c.sessionID != sessionID
	c.sessionID = sessionID
	return changed
}

// Send writes one envelope as a text frame.
func (c *Connection) Send(_ context.Context, env proto.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with code and reason, then closes the socket.
// Closing twice is a no-op.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

// Registry tracks live connections by id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

func (r *Registry) add(c *Connection) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
}

// remove drops c only if it is still the registered connection for its id.
func (r *Registry) remove(c *Connection) {
	r.mu.Lock()
	if r.conns[c.id] == c {
		delete(r.conns, c.id)
	}
	r.mu.Unlock()
}

// Get returns the live connection with the given id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len reports how many connections are open.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
