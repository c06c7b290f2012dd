package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

const testWriteTimeout = 2 * time.Second

// fakeTransport records frames instead of touching the network.
type fakeTransport struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	pingErr  error
	closed   bool
	pings    int
}

func (t *fakeTransport) Write(_ context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return t.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.frames = append(t.frames, cp)
	return nil
}

func (t *fakeTransport) Ping(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pings++
	return t.pingErr
}

func (t *fakeTransport) Close(_ websocket.StatusCode, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *fakeTransport) CloseNow() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) pingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pings
}

type recvEnvelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	UserID    string          `json:"userId"`
	Timestamp int64           `json:"timestamp"`
}

func (t *fakeTransport) envelopes(tb testing.TB) []recvEnvelope {
	tb.Helper()

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]recvEnvelope, 0, len(t.frames))
	for _, f := range t.frames {
		var env recvEnvelope
		require.NoError(tb, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

func (t *fakeTransport) ofType(tb testing.TB, et EventType) []recvEnvelope {
	tb.Helper()

	var out []recvEnvelope
	for _, env := range t.envelopes(tb) {
		if env.Type == et {
			out = append(out, env)
		}
	}
	return out
}

func newTestConn(userID string) (*Connection, *fakeTransport) {
	ft := &fakeTransport{}
	return NewConnection(userID, userID+"@example.com", ft, testWriteTimeout), ft
}

// newTestRooms wires a room index with no event mirroring.
func newTestRooms() *RoomIndex {
	return NewRoomIndex(NewBroadcaster(nil, testWriteTimeout))
}
