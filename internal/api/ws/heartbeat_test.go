package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type terminateRecorder struct {
	mu    sync.Mutex
	conns []*Connection
}

func (tr *terminateRecorder) terminate(c *Connection) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.conns = append(tr.conns, c)
}

func (tr *terminateRecorder) count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.conns)
}

func TestHeartbeat_ProbeRestoresAliveness(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	rec := &terminateRecorder{}
	hb := NewHeartbeat(reg, 50*time.Millisecond, rec.terminate)

	c, ft := newTestConn("alice")
	reg.Register(c)

	hb.tick(context.Background())

	assert.Eventually(t, c.Alive, time.Second, 5*time.Millisecond,
		"a successful pong must restore the liveness flag")
	assert.Equal(t, 1, ft.pingCount())
	assert.Zero(t, rec.count())
}

func TestHeartbeat_UnresponsivePeerTerminatedOnSecondTick(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	rec := &terminateRecorder{}
	hb := NewHeartbeat(reg, 50*time.Millisecond, rec.terminate)

	c, ft := newTestConn("alice")
	ft.pingErr = errors.New("peer gone")
	reg.Register(c)

	hb.tick(context.Background())
	require.Zero(t, rec.count(), "first missed probe only clears the flag")

	assert.Eventually(t, func() bool { return ft.pingCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Alive())

	hb.tick(context.Background())
	assert.Equal(t, 1, rec.count(), "second tick without a pong must terminate")
	assert.Same(t, c, rec.conns[0])
}

func TestHeartbeat_ResponsivePeerSurvivesManyTicks(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	rec := &terminateRecorder{}
	hb := NewHeartbeat(reg, 50*time.Millisecond, rec.terminate)

	c, ft := newTestConn("alice")
	reg.Register(c)

	for i := 0; i < 3; i++ {
		hb.tick(context.Background())
		require.Eventually(t, c.Alive, time.Second, 5*time.Millisecond)
	}

	assert.Zero(t, rec.count())
	assert.Equal(t, 3, ft.pingCount())
}

func TestHeartbeat_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	hb := NewHeartbeat(reg, 10*time.Millisecond, func(*Connection) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop after cancellation")
	}
}
