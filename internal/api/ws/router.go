package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

type handlerFunc func(c *Connection, payload json.RawMessage) error

// Router decodes inbound messages and dispatches them by event type.
type Router struct {
	rooms       *RoomIndex
	broadcaster *Broadcaster
	handlers    map[EventType]handlerFunc
}

func NewRouter(rooms *RoomIndex, broadcaster *Broadcaster) *Router {
	r := &Router{rooms: rooms, broadcaster: broadcaster}
	r.handlers = map[EventType]handlerFunc{
		EventBoardJoin:      r.handleBoardJoin,
		EventBoardLeave:     r.handleBoardLeave,
		EventBoardUpdate:    r.handleBoardUpdate,
		EventBoardCursor:    r.handleBoardCursor,
		EventWorkspaceJoin:  r.handleWorkspaceJoin,
		EventWorkspaceLeave: r.handleWorkspaceLeave,
		EventUserTyping:     r.handleUserTyping,
	}
	return r
}

// Dispatch handles one raw client frame. Malformed or rejected messages
// produce an error envelope on the sending connection only; they never
// tear the connection down.
func (r *Router) Dispatch(c *Connection, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
		r.sendError(c, "invalid message format")
		return
	}

	h, ok := r.handlers[in.Type]
	if !ok {
		r.sendError(c, fmt.Sprintf("unknown event type: %s", in.Type))
		return
	}

	if err := h(c, in.Payload); err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrForbidden) {
			r.sendError(c, err.Error())
			return
		}
		log.Error().
			Err(err).
			Str("user_id", c.UserID()).
			Str("event", string(in.Type)).
			Msg("ws: handler failed")
		r.sendError(c, "internal error")
	}
}

func (r *Router) sendError(c *Connection, msg string) {
	env := newEnvelope(EventError, ErrorPayload{Error: msg}, "")
	if err := c.Send(env); err != nil {
		log.Debug().Err(err).Str("user_id", c.UserID()).Msg("ws: error envelope write failed")
	}
}

func (r *Router) handleBoardJoin(c *Connection, payload json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.BoardID == "" {
		return validationError("board id required")
	}

	r.rooms.Join(c, p.BoardID, KindBoard)
	return nil
}

// handleBoardLeave removes the sender from a board room. The board id is
// optional; when omitted it defaults to the room the connection is in,
// and leaving while in no room is a no-op.
func (r *Router) handleBoardLeave(c *Connection, payload json.RawMessage) error {
	var p RoomPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return validationError("invalid leave payload")
		}
	}

	boardID := p.BoardID
	if boardID == "" {
		boardID = c.BoardID()
	}
	if boardID == "" {
		return nil
	}

	r.rooms.Leave(c, boardID, KindBoard)
	return nil
}

func (r *Router) handleWorkspaceJoin(c *Connection, payload json.RawMessage) error {
	var p RoomPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.WorkspaceID == "" {
		return validationError("workspace id required")
	}

	r.rooms.Join(c, p.WorkspaceID, KindWorkspace)
	return nil
}

// handleWorkspaceLeave mirrors handleBoardLeave: the workspace id is
// optional and defaults to the connection's current workspace room.
func (r *Router) handleWorkspaceLeave(c *Connection, payload json.RawMessage) error {
	var p RoomPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return validationError("invalid leave payload")
		}
	}

	workspaceID := p.WorkspaceID
	if workspaceID == "" {
		workspaceID = c.WorkspaceID()
	}
	if workspaceID == "" {
		return nil
	}

	r.rooms.Leave(c, workspaceID, KindWorkspace)
	return nil
}

func (r *Router) handleBoardUpdate(c *Connection, payload json.RawMessage) error {
	var p BoardUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationError("invalid board update payload")
	}
	if p.BoardID == "" || emptyContent(p.Content) {
		return validationError("board id and content required")
	}
	if c.BoardID() != p.BoardID {
		return forbiddenError("not connected to this board")
	}

	env := newEnvelope(EventBoardUpdate, BoardUpdatePayload{
		BoardID: p.BoardID,
		Content: p.Content,
	}, c.UserID())

	members := r.rooms.MembersOf(p.BoardID, KindBoard)
	r.broadcaster.Broadcast(channelFor(KindBoard, p.BoardID), members, env, c.UserID())
	return nil
}

func (r *Router) handleBoardCursor(c *Connection, payload json.RawMessage) error {
	var p CursorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationError("invalid cursor payload")
	}
	if p.BoardID == "" || p.X == nil || p.Y == nil {
		return validationError("board id and cursor position required")
	}
	if c.BoardID() != p.BoardID {
		return forbiddenError("not connected to this board")
	}

	env := newEnvelope(EventBoardCursor, p, c.UserID())

	members := r.rooms.MembersOf(p.BoardID, KindBoard)
	r.broadcaster.Broadcast(channelFor(KindBoard, p.BoardID), members, env, c.UserID())
	return nil
}

func (r *Router) handleUserTyping(c *Connection, payload json.RawMessage) error {
	var p TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return validationError("invalid typing payload")
	}
	if p.BoardID == "" {
		return validationError("board id required")
	}
	if c.BoardID() != p.BoardID {
		return forbiddenError("not connected to this board")
	}

	env := newEnvelope(EventUserTyping, p, c.UserID())

	members := r.rooms.MembersOf(p.BoardID, KindBoard)
	r.broadcaster.Broadcast(channelFor(KindBoard, p.BoardID), members, env, c.UserID())
	return nil
}

// emptyContent treats a missing field, JSON null, and the empty string as
// no content.
func emptyContent(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == `""`
}
