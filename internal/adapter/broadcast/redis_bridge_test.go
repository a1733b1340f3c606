package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage-auction-engine/internal/core/ports"
)

func newBridgeFixture(t *testing.T) (*RedisBridge, *Hub, context.Context) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	bridge := NewRedisBridge(rdb, hub, zerolog.Nop())
	go bridge.Run(ctx)
	// Give the subscriber a beat to attach before tests publish.
	time.Sleep(50 * time.Millisecond)

	return bridge, hub, ctx
}

func TestRedisBridge_PublishLoopsBackToLocalHub(t *testing.T) {
	bridge, hub, ctx := newBridgeFixture(t)

	topic := ports.AuctionTopic(uuid.New())
	srv := newTestServer(t, hub, topic)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 1
	}, time.Second, 10*time.Millisecond)

	bridge.Publish(ctx, topic, ports.Event{
		Type:    "bid_accepted",
		Topic:   topic,
		Payload: map[string]any{"amount": 150000},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev ports.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "bid_accepted", ev.Type)
	assert.EqualValues(t, 150000, ev.Payload["amount"])
}

func TestRedisBridge_MalformedMessageDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)
	bridge := NewRedisBridge(rdb, hub, zerolog.Nop())
	go bridge.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Junk on the wire must not kill the consumer loop.
	require.NoError(t, rdb.Publish(ctx, bridgeChannel, "{not json").Err())

	topic := ports.AuctionTopic(uuid.New())
	srv := newTestServer(t, hub, topic)
	conn := dial(t, srv)
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 1
	}, time.Second, 10*time.Millisecond)

	bridge.Publish(ctx, topic, ports.Event{Type: "watcher_count", Topic: topic})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev ports.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "watcher_count", ev.Type)
}
