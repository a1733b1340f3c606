// Package broadcast fans auction and vendor events out to WebSocket
// subscribers. The hub is a single goroutine owning all subscription state;
// handlers and services talk to it over channels only.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"salvage-auction-engine/internal/core/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Per-client send buffer. A client that falls this far behind is dropped
	// rather than allowed to stall the hub.
	sendBuffer = 64
)

// Client is one WebSocket subscriber pinned to a single topic.
type Client struct {
	topic string
	conn  *websocket.Conn
	send  chan []byte

	onMessage func([]byte)
	onClose   func()
}

type envelope struct {
	topic   string
	payload []byte
}

// Hub routes published events to topic subscribers.
type Hub struct {
	log zerolog.Logger

	register   chan *Client
	unregister chan *Client
	events     chan envelope
	done       chan struct{}

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "broadcast_hub").Logger(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan envelope, 256),
		done:       make(chan struct{}),
		topics:     make(map[string]map[*Client]struct{}),
	}
}

// Run owns the subscription state until ctx is cancelled. Call once, in its
// own goroutine. Closing done before closeAll lets pumps blocked on the
// register/unregister channels bail out instead of waiting on a loop that
// will never read again.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case ev := <-h.events:
			h.fanOut(ev)
		}
	}
}

// Publish implements ports.Broadcaster. Events are dropped, with a log line,
// if the hub buffer is full; subscribers recover by refetching state.
func (h *Hub) Publish(_ context.Context, topic string, event ports.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("marshal broadcast event")
		return
	}
	select {
	case h.events <- envelope{topic: topic, payload: payload}:
	default:
		h.log.Warn().Str("topic", topic).Str("type", event.Type).Msg("broadcast buffer full, event dropped")
	}
}

// Subscribe attaches an upgraded connection to a topic and starts its pumps.
// The client is detached automatically when the peer disconnects.
func (h *Hub) Subscribe(topic string, conn *websocket.Conn) *Client {
	return h.SubscribeWithHooks(topic, conn, nil, nil)
}

// SubscribeWithHooks is Subscribe plus callbacks: onMessage fires for every
// inbound text frame, onClose once when the peer detaches. The presence
// tracker hangs off these.
func (h *Hub) SubscribeWithHooks(topic string, conn *websocket.Conn, onMessage func([]byte), onClose func()) *Client {
	c := &Client{
		topic:     topic,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		onMessage: onMessage,
		onClose:   onClose,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		close(c.send)
		return c
	}
	go c.writePump()
	go c.readPump(h)
	return c
}

// SubscriberCount reports how many connections are attached to a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	set, ok := h.topics[c.topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.topics[c.topic] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("topic", c.topic).Msg("subscriber attached")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	set, ok := h.topics[c.topic]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.mu.Unlock()
	c.conn.Close()
	h.log.Debug().Str("topic", c.topic).Msg("subscriber detached")
}

func (h *Hub) fanOut(ev envelope) {
	h.mu.RLock()
	set := h.topics[ev.topic]
	slow := make([]*Client, 0)
	for c := range set {
		select {
		case c.send <- ev.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.removeClient(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.topics {
		for c := range set {
			close(c.send)
			c.conn.Close()
		}
		delete(h.topics, topic)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames to detect disconnects and feed the message
// hook. Bids and other state changes go through the HTTP API, never here.
func (c *Client) readPump(h *Hub) {
	defer func() {
		if c.onClose != nil {
			c.onClose()
		}
		select {
		case h.unregister <- c:
		case <-h.done:
			// closeAll already detached every client.
		}
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}
