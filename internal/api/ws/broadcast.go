package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// EventPublisher mirrors room events to an external channel. Satisfied by
// *redisstore.PubSub; may be nil when mirroring is disabled.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Broadcaster fans an envelope out to a set of connections. The envelope
// is serialized once per broadcast, not once per recipient.
type Broadcaster struct {
	publisher    EventPublisher
	writeTimeout time.Duration
}

func NewBroadcaster(publisher EventPublisher, writeTimeout time.Duration) *Broadcaster {
	return &Broadcaster{publisher: publisher, writeTimeout: writeTimeout}
}

// Broadcast writes the envelope to every member except connections owned
// by excludeUserID and connections already closed. A failed write to one
// member never blocks delivery to the rest.
func (b *Broadcaster) Broadcast(channel string, members []*Connection, env *Envelope, excludeUserID string) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", string(env.Type)).Msg("ws: broadcast marshal failed")
		return
	}

	if b.publisher != nil {
		go b.mirror(channel, data)
	}

	for _, m := range members {
		if m.UserID() == excludeUserID || !m.Open() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
		err := m.transport.Write(ctx, data)
		cancel()
		if err != nil {
			log.Debug().
				Err(err).
				Str("user_id", m.UserID()).
				Str("event", string(env.Type)).
				Msg("ws: broadcast write failed")
		}
	}
}

func (b *Broadcaster) mirror(channel string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.publisher.Publish(ctx, channel, data); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("ws: event mirror failed")
	}
}
