package ws

import (
	"encoding/json"
	"errors"
	"time"
)

// EventType identifies a realtime message on the wire.
type EventType string

const (
	EventConnect        EventType = "connect"
	EventDisconnect     EventType = "disconnect"
	EventError          EventType = "error"
	EventBoardJoin      EventType = "board:join"
	EventBoardLeave     EventType = "board:leave"
	EventBoardUpdate    EventType = "board:update"
	EventBoardCursor    EventType = "board:cursor"
	EventWorkspaceJoin  EventType = "workspace:join"
	EventWorkspaceLeave EventType = "workspace:leave"
	EventUserTyping     EventType = "user:typing"
	EventUserPresence   EventType = "user:presence"
)

// Envelope is the outbound wire format. UserID and Timestamp are always
// stamped by the server; values sent by clients are ignored.
type Envelope struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

func newEnvelope(t EventType, payload any, userID string) *Envelope {
	return &Envelope{
		Type:      t,
		Payload:   payload,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// inbound is the decoded client message. Only type and payload are read;
// any sender identity or timestamp a client includes is discarded.
type inbound struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectPayload confirms a successful authenticated connection.
type ConnectPayload struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ErrorPayload carries a human-readable failure sent back to one client.
type ErrorPayload struct {
	Error string `json:"error"`
}

// RoomPayload names a board or workspace room in join/leave requests.
type RoomPayload struct {
	BoardID     string `json:"boardId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

// BoardUpdatePayload carries board content changes. Content is opaque to
// the server and relayed verbatim.
type BoardUpdatePayload struct {
	BoardID string          `json:"boardId"`
	Content json.RawMessage `json:"content"`
}

// CursorPayload carries a collaborator's pointer position on a board.
type CursorPayload struct {
	BoardID  string   `json:"boardId"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	UserName string   `json:"userName,omitempty"`
}

// TypingPayload signals that a user started or stopped typing on a board.
type TypingPayload struct {
	BoardID  string `json:"boardId"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload announces a user entering or leaving a room.
type PresencePayload struct {
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	BoardID     string `json:"boardId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

var (
	// ErrValidation marks a client message that failed payload validation.
	ErrValidation = errors.New("ws: invalid payload")
	// ErrForbidden marks an operation on a room the sender is not in.
	ErrForbidden = errors.New("ws: forbidden")
)

// clientError is an error whose message is safe to echo back to the
// offending client. It unwraps to one of the sentinels above.
type clientError struct {
	kind error
	msg  string
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.kind }

func validationError(msg string) error {
	return &clientError{kind: ErrValidation, msg: msg}
}

func forbiddenError(msg string) error {
	return &clientError{kind: ErrForbidden, msg: msg}
}
