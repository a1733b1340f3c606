package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"salvage-auction-engine/internal/core/ports"
)

// bridgeChannel is the single Redis channel all replicas share. Topic
// routing stays inside the event payload.
const bridgeChannel = "broadcast:events"

// RedisBridge implements ports.Broadcaster across replicas: every publish
// goes through Redis pub/sub and comes back to each replica's local hub, so
// a vendor connected to any instance sees every event.
type RedisBridge struct {
	rdb   *redis.Client
	local *Hub
	log   zerolog.Logger
}

type bridgeMessage struct {
	Topic string      `json:"topic"`
	Event ports.Event `json:"event"`
}

// NewRedisBridge creates a bridge in front of the given local hub.
func NewRedisBridge(rdb *redis.Client, local *Hub, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		rdb:   rdb,
		local: local,
		log:   log.With().Str("component", "broadcast_bridge").Logger(),
	}
}

// Publish sends the event through Redis. Local delivery happens when the
// message loops back via Run; a Redis failure falls back to local-only so a
// single-replica deployment keeps working without Redis pub/sub.
func (b *RedisBridge) Publish(ctx context.Context, topic string, event ports.Event) {
	payload, err := json.Marshal(bridgeMessage{Topic: topic, Event: event})
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("marshal bridge message")
		return
	}
	if err := b.rdb.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		b.log.Warn().Err(err).Str("topic", topic).Msg("redis publish failed, delivering locally only")
		b.local.Publish(ctx, topic, event)
	}
}

// Run consumes the shared channel and feeds the local hub until ctx is
// cancelled. Call once, in its own goroutine.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var bm bridgeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				b.log.Warn().Err(err).Msg("malformed bridge message dropped")
				continue
			}
			b.local.Publish(ctx, bm.Topic, bm.Event)
		}
	}
}
