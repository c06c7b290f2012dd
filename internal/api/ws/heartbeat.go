package ws

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Heartbeat probes every registered connection on a fixed interval. A
// connection that has not answered by the next tick is handed to the
// terminate callback, so a dead peer survives at most two intervals.
type Heartbeat struct {
	registry  *Registry
	interval  time.Duration
	terminate func(*Connection)
}

func NewHeartbeat(registry *Registry, interval time.Duration, terminate func(*Connection)) *Heartbeat {
	return &Heartbeat{registry: registry, interval: interval, terminate: terminate}
}

// Run ticks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

// tick terminates connections that missed the previous probe, then probes
// the rest. Probes run concurrently so one stalled peer cannot delay the
// sweep.
func (h *Heartbeat) tick(ctx context.Context) {
	for _, c := range h.registry.Connections() {
		if !c.Alive() {
			log.Info().
				Str("user_id", c.UserID()).
				Str("conn_id", c.ID().String()).
				Msg("ws: terminating unresponsive connection")
			h.terminate(c)
			continue
		}

		c.setAlive(false)
		go h.probe(ctx, c)
	}
}

func (h *Heartbeat) probe(ctx context.Context, c *Connection) {
	pctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	if err := c.transport.Ping(pctx); err != nil {
		log.Debug().Err(err).Str("user_id", c.UserID()).Msg("ws: ping failed")
		return
	}
	c.setAlive(true)
}
