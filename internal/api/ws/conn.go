package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Transport is the minimal surface the engine needs from a WebSocket
// connection. *websocket.Conn satisfies it via the adapter in hub.go;
// tests substitute in-memory fakes.
type Transport interface {
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
	CloseNow() error
}

// Connection is one authenticated WebSocket session. A user may hold any
// number of concurrent connections; each gets its own Connection with a
// unique ID.
type Connection struct {
	id           uuid.UUID
	userID       string
	email        string
	transport    Transport
	writeTimeout time.Duration

	mu          sync.Mutex
	boardID     string
	workspaceID string
	alive       bool
	closed      bool

	// cleanup guards the disconnect cascade so that a read-loop exit and a
	// heartbeat termination racing each other unregister exactly once.
	cleanup sync.Once
}

func NewConnection(userID, email string, t Transport, writeTimeout time.Duration) *Connection {
	return &Connection{
		id:           uuid.New(),
		userID:       userID,
		email:        email,
		transport:    t,
		writeTimeout: writeTimeout,
		alive:        true,
	}
}

func (c *Connection) ID() uuid.UUID  { return c.id }
func (c *Connection) UserID() string { return c.userID }
func (c *Connection) Email() string  { return c.email }

// BoardID returns the board room this connection is in, or "".
func (c *Connection) BoardID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boardID
}

// WorkspaceID returns the workspace room this connection is in, or "".
func (c *Connection) WorkspaceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workspaceID
}

func (c *Connection) roomFor(kind RoomKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind == KindBoard {
		return c.boardID
	}
	return c.workspaceID
}

func (c *Connection) setRoomFor(kind RoomKind, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind == KindBoard {
		c.boardID = roomID
	} else {
		c.workspaceID = roomID
	}
}

// Alive reports whether the connection answered the last liveness probe.
func (c *Connection) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *Connection) setAlive(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alive = v
}

// Open reports whether the connection has not yet been marked closed.
func (c *Connection) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Send marshals the envelope and writes it with the configured timeout.
// Writes to a closed connection are silently dropped.
func (c *Connection) Send(env *Envelope) error {
	if !c.Open() {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("ws.Connection.Send: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()

	if err := c.transport.Write(ctx, data); err != nil {
		return fmt.Errorf("ws.Connection.Send: %w", err)
	}

	return nil
}
