package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvage-auction-engine/internal/core/ports"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newTestServer(t *testing.T, hub *Hub, topic string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Subscribe(topic, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	topic := ports.AuctionTopic(uuid.New())
	srv := newTestServer(t, hub, topic)
	conn := dial(t, srv)

	// Wait for the registration to land on the hub goroutine.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(ctx, topic, ports.Event{
		Type:  "bid_accepted",
		Topic: topic,
		Payload: map[string]any{
			"amount": 150000,
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev ports.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "bid_accepted", ev.Type)
	assert.Equal(t, topic, ev.Topic)
	assert.EqualValues(t, 150000, ev.Payload["amount"])
}

func TestHub_TopicIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	topicA := ports.AuctionTopic(uuid.New())
	topicB := ports.AuctionTopic(uuid.New())
	srv := newTestServer(t, hub, topicA)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topicA) == 1
	}, time.Second, 10*time.Millisecond)

	// Event for another auction must not reach this subscriber.
	hub.Publish(ctx, topicB, ports.Event{Type: "auction_extended", Topic: topicB})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// Cancelling the hub context must let every client pump run to completion:
// a pump stuck handing its client back to a stopped loop is a leaked
// goroutine per connection on shutdown.
func TestHub_ShutdownReleasesClientPumps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	topic := ports.AuctionTopic(uuid.New())
	detached := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.SubscribeWithHooks(topic, conn, nil, func() { close(detached) })
	}))
	t.Cleanup(srv.Close)
	dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 1
	}, time.Second, 10*time.Millisecond)

	before := runtime.NumGoroutine()
	cancel()

	select {
	case <-detached:
	case <-time.After(2 * time.Second):
		t.Fatal("read pump did not detach after hub shutdown")
	}
	assert.Equal(t, 0, hub.SubscriberCount(topic))

	// Both pumps exit; the goroutine count falls back below the pre-cancel
	// level once the blocked handoff is released.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() < before
	}, 2*time.Second, 10*time.Millisecond)

	// A late subscribe against a stopped hub returns instead of blocking.
	lateDone := make(chan struct{})
	lateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Subscribe(topic, conn)
		close(lateDone)
	}))
	t.Cleanup(lateSrv.Close)
	dial(t, lateSrv)

	select {
	case <-lateDone:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe against a stopped hub blocked")
	}
}

func TestHub_DisconnectDetaches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	topic := ports.VendorTopic(uuid.New())
	srv := newTestServer(t, hub, topic)
	conn := dial(t, srv)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
