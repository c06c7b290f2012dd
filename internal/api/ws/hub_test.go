package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerifier(t *testing.T) TokenVerifier {
	t.Helper()

	return func(token string) (*Identity, error) {
		if !strings.HasPrefix(token, "user:") {
			return nil, errors.New("bad token")
		}
		id := strings.TrimPrefix(token, "user:")
		return &Identity{UserID: id, Email: id + "@example.com"}, nil
	}
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	h := NewHub(testVerifier(t), nil, time.Minute, testWriteTimeout)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)

	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })

	return conn
}

func readEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn) recvEnvelope {
	t.Helper()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var env recvEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func sendJSON(t *testing.T, ctx context.Context, conn *websocket.Conn, raw string) {
	t.Helper()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(raw)))
}

// waitForMember polls the room index until the user's join has been
// dispatched, so a subsequent join on another connection cannot be
// processed first.
func waitForMember(t *testing.T, h *Hub, roomID string, kind RoomKind, userID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		for _, m := range h.rooms.MembersOf(roomID, kind) {
			if m.UserID() == userID {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsMissingToken(t *testing.T) {
	t.Parallel()

	_, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, url)

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestHub_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	_, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, url+"?token=garbage")

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestHub_ConnectConfirmation(t *testing.T) {
	t.Parallel()

	_, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, url+"?token=user:alice")

	env := readEnvelope(t, ctx, conn)
	assert.Equal(t, EventConnect, env.Type)
	assert.Equal(t, "alice", env.UserID)

	var p ConnectPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "alice", p.UserID)
}

func TestHub_UpdateFanOutBetweenClients(t *testing.T) {
	t.Parallel()

	h, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := dial(t, ctx, url+"?token=user:alice")
	bob := dial(t, ctx, url+"?token=user:bob")

	require.Equal(t, EventConnect, readEnvelope(t, ctx, alice).Type)
	require.Equal(t, EventConnect, readEnvelope(t, ctx, bob).Type)

	sendJSON(t, ctx, alice, `{"type":"board:join","payload":{"boardId":"b1"}}`)
	waitForMember(t, h, "b1", KindBoard, "alice")
	sendJSON(t, ctx, bob, `{"type":"board:join","payload":{"boardId":"b1"}}`)

	// Bob's arrival reaching alice proves both joins are applied.
	presence := readEnvelope(t, ctx, alice)
	require.Equal(t, EventUserPresence, presence.Type)
	require.Equal(t, "bob", presence.UserID)

	sendJSON(t, ctx, alice, `{"type":"board:update","payload":{"boardId":"b1","content":"hello"}}`)

	update := readEnvelope(t, ctx, bob)
	assert.Equal(t, EventBoardUpdate, update.Type)
	assert.Equal(t, "alice", update.UserID)

	var p BoardUpdatePayload
	require.NoError(t, json.Unmarshal(update.Payload, &p))
	assert.Equal(t, "b1", p.BoardID)
	assert.JSONEq(t, `"hello"`, string(p.Content))
}

func TestHub_DisconnectAnnouncesOffline(t *testing.T) {
	t.Parallel()

	h, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := dial(t, ctx, url+"?token=user:alice")
	bob := dial(t, ctx, url+"?token=user:bob")

	require.Equal(t, EventConnect, readEnvelope(t, ctx, alice).Type)
	require.Equal(t, EventConnect, readEnvelope(t, ctx, bob).Type)

	sendJSON(t, ctx, alice, `{"type":"board:join","payload":{"boardId":"b1"}}`)
	waitForMember(t, h, "b1", KindBoard, "alice")
	sendJSON(t, ctx, bob, `{"type":"board:join","payload":{"boardId":"b1"}}`)
	require.Equal(t, EventUserPresence, readEnvelope(t, ctx, alice).Type)

	require.NoError(t, bob.Close(websocket.StatusNormalClosure, ""))

	env := readEnvelope(t, ctx, alice)
	require.Equal(t, EventUserPresence, env.Type)

	var p PresencePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "bob", p.UserID)
	assert.Equal(t, PresenceOffline, p.Status)
	assert.Equal(t, "b1", p.BoardID)
}

func TestHub_ErrorEnvelopeKeepsConnectionUsable(t *testing.T) {
	t.Parallel()

	_, url := startHub(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := dial(t, ctx, url+"?token=user:alice")
	require.Equal(t, EventConnect, readEnvelope(t, ctx, alice).Type)

	sendJSON(t, ctx, alice, `not json at all`)

	env := readEnvelope(t, ctx, alice)
	require.Equal(t, EventError, env.Type)

	// The connection still works afterwards.
	sendJSON(t, ctx, alice, `{"type":"board:join","payload":{"boardId":"b1"}}`)
	sendJSON(t, ctx, alice, `{"type":"board:update","payload":{"boardId":"b1","content":"still here"}}`)
}

func TestHub_DisconnectCascadeIsIdempotent(t *testing.T) {
	t.Parallel()

	h := NewHub(testVerifier(t), nil, time.Minute, testWriteTimeout)
	c, ft := newTestConn("alice")

	h.registry.Register(c)
	h.rooms.Join(c, "b1", KindBoard)

	h.disconnect(c)
	h.terminate(c)
	h.disconnect(c)

	assert.Empty(t, h.registry.Connections())
	assert.Empty(t, h.rooms.MembersOf("b1", KindBoard))
	assert.False(t, c.Open())
	assert.True(t, ft.isClosed())
}

func TestHub_JoinAfterDisconnectLeavesNoMembership(t *testing.T) {
	t.Parallel()

	h := NewHub(testVerifier(t), nil, time.Minute, testWriteTimeout)
	c, _ := newTestConn("alice")

	h.registry.Register(c)
	h.rooms.Join(c, "b1", KindBoard)

	// A dispatch racing the disconnect cascade must not re-create the
	// membership the cascade just cleaned up.
	h.disconnect(c)
	h.rooms.Join(c, "b1", KindBoard)

	assert.Empty(t, h.rooms.MembersOf("b1", KindBoard))
	assert.Empty(t, c.BoardID())
}

func TestHub_BoardUpdatedFromREST(t *testing.T) {
	t.Parallel()

	h := NewHub(testVerifier(t), nil, time.Minute, testWriteTimeout)

	actor, actorFT := newTestConn("alice")
	viewer, viewerFT := newTestConn("bob")
	h.registry.Register(actor)
	h.registry.Register(viewer)
	h.rooms.Join(actor, "b1", KindBoard)
	h.rooms.Join(viewer, "b1", KindBoard)

	h.BoardUpdated("b1", json.RawMessage(`{"cells":[1,2]}`), "alice")

	got := viewerFT.ofType(t, EventBoardUpdate)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].UserID)

	var p BoardUpdatePayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &p))
	assert.Equal(t, "b1", p.BoardID)
	assert.JSONEq(t, `{"cells":[1,2]}`, string(p.Content))

	assert.Empty(t, actorFT.ofType(t, EventBoardUpdate), "acting user's sessions are excluded")
}

func TestHub_BoardUpdatedEmptyRoomIsNoOp(t *testing.T) {
	t.Parallel()

	h := NewHub(testVerifier(t), nil, time.Minute, testWriteTimeout)

	h.BoardUpdated("ghost", json.RawMessage(`"x"`), "alice")
}
