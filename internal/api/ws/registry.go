package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry tracks every open connection, indexed by user so that all of a
// user's sessions can be found together.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]map[uuid.UUID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[uuid.UUID]*Connection)}
}

func (r *Registry) Register(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[c.UserID()]
	if !ok {
		set = make(map[uuid.UUID]*Connection)
		r.byUser[c.UserID()] = set
	}
	set[c.ID()] = c
}

// Unregister removes the connection. Calling it for a connection that was
// already removed is a no-op.
func (r *Registry) Unregister(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byUser[c.UserID()]
	if !ok {
		return
	}
	delete(set, c.ID())
	if len(set) == 0 {
		delete(r.byUser, c.UserID())
	}
}

// Connections returns a snapshot of every open connection.
func (r *Registry) Connections() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Connection, 0, len(r.byUser))
	for _, set := range r.byUser {
		for _, c := range set {
			out = append(out, c)
		}
	}
	return out
}

// UserConnections returns a snapshot of one user's open connections.
func (r *Registry) UserConnections(userID string) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byUser[userID]
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// SendConfirmation delivers the connect envelope that completes the
// handshake.
func (r *Registry) SendConfirmation(c *Connection) {
	env := newEnvelope(EventConnect, ConnectPayload{
		UserID:  c.UserID(),
		Message: "connected successfully",
	}, c.UserID())

	if err := c.Send(env); err != nil {
		log.Warn().Err(err).Str("user_id", c.UserID()).Msg("ws: connect confirmation failed")
	}
}
