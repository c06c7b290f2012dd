package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier checks the handshake token and resolves it to an identity.
type TokenVerifier func(token string) (*Identity, error)

// Hub owns the realtime engine: it upgrades and authenticates incoming
// WebSocket requests, runs each connection's read loop, and wires the
// registry, room index, router and heartbeat together.
type Hub struct {
	registry     *Registry
	rooms        *RoomIndex
	broadcaster  *Broadcaster
	router       *Router
	heartbeat    *Heartbeat
	verify       TokenVerifier
	writeTimeout time.Duration
}

func NewHub(verify TokenVerifier, publisher EventPublisher, heartbeatInterval, writeTimeout time.Duration) *Hub {
	h := &Hub{verify: verify, writeTimeout: writeTimeout}

	h.registry = NewRegistry()
	h.broadcaster = NewBroadcaster(publisher, writeTimeout)
	h.rooms = NewRoomIndex(h.broadcaster)
	h.router = NewRouter(h.rooms, h.broadcaster)
	h.heartbeat = NewHeartbeat(h.registry, heartbeatInterval, h.terminate)

	return h
}

// Run drives the heartbeat until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.heartbeat.Run(ctx)
}

// ServeWS upgrades the request and, if the handshake token verifies,
// enters the connection's read loop. The upgrade is completed before
// authentication so that failures close with a WebSocket status code the
// client can observe rather than an opaque HTTP error.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("ws: accept failed")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication required")
		return
	}

	ident, err := h.verify(token)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws: handshake rejected")
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}

	c := NewConnection(ident.UserID, ident.Email, &wsTransport{conn: conn}, h.writeTimeout)
	h.registry.Register(c)
	defer h.disconnect(c)

	log.Info().
		Str("user_id", c.UserID()).
		Str("conn_id", c.ID().String()).
		Msg("ws: connection established")

	h.registry.SendConfirmation(c)

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Str("user_id", c.UserID()).Msg("ws: read loop ended")
			return
		}
		h.router.Dispatch(c, data)
	}
}

// disconnect runs the teardown cascade exactly once per connection: leave
// all rooms (announcing offline presence), unregister, close the socket.
func (h *Hub) disconnect(c *Connection) {
	c.cleanup.Do(func() {
		c.markClosed()
		h.rooms.LeaveAll(c)
		h.registry.Unregister(c)
		_ = c.transport.CloseNow()

		log.Info().
			Str("user_id", c.UserID()).
			Str("conn_id", c.ID().String()).
			Msg("ws: connection closed")
	})
}

// terminate is the heartbeat's path into the same cascade.
func (h *Hub) terminate(c *Connection) {
	h.disconnect(c)
}

// BoardUpdated pushes a board change that originated outside the socket
// (the REST API) into the board's live room. The acting user's own
// connections are excluded, matching socket-originated updates.
func (h *Hub) BoardUpdated(boardID string, content json.RawMessage, userID string) {
	members := h.rooms.MembersOf(boardID, KindBoard)
	if len(members) == 0 && h.broadcaster.publisher == nil {
		return
	}

	env := newEnvelope(EventBoardUpdate, BoardUpdatePayload{
		BoardID: boardID,
		Content: content,
	}, userID)

	h.broadcaster.Broadcast(channelFor(KindBoard, boardID), members, env, userID)
}

// wsTransport adapts *websocket.Conn to the Transport interface.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Ping(ctx context.Context) error {
	return t.conn.Ping(ctx)
}

func (t *wsTransport) Close(code websocket.StatusCode, reason string) error {
	return t.conn.Close(code, reason)
}

func (t *wsTransport) CloseNow() error {
	return t.conn.CloseNow()
}
