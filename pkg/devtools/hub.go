package devtools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// EventType is the kind of an engine event streamed to clients.
type EventType string

const (
	EventHello    EventType = "hello"
	EventRun      EventType = "run"
	EventRunEnd   EventType = "run-end"
	EventTrack    EventType = "track"
	EventTrigger  EventType = "trigger"
	EventStop     EventType = "stop"
	EventRejected EventType = "rejected"
)

// Event is sent to clients via WebSocket.
type Event struct {
	Seq         uint64               `json:"seq"`
	Type        EventType            `json:"type"`
	Time        time.Time            `json:"time"`
	Effect      *reactive.EffectInfo `json:"effect,omitempty"`
	Key         string               `json:"key,omitempty"`
	Subscribers int                  `json:"subscribers,omitempty"`
	Client      string               `json:"client,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub streams engine events to WebSocket clients. It implements
// reactive.Instrumentation; install it, usually through instrument.Multi,
// and call Run to start delivery.
//
// Events are queued without blocking the engine. When the queue is full
// new events are dropped and counted.
type Hub struct {
	clients  map[*client]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	events  chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a hub with a queue of the given size. Origins lists the
// origins allowed to connect besides the server's own.
func NewHub(queueSize int, origins []string) *Hub {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
		events: make(chan Event, queueSize),
	}
}

// checkOrigin allows requests without an Origin header, same-origin
// requests, and the listed origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	c := &client{id: newClientID(), conn: conn}
	hello, _ := json.Marshal(Event{Type: EventHello, Time: time.Now(), Client: c.id})
	if err := c.write(hello); err != nil {
		conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func newClientID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// Run delivers queued events until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

// broadcast sends an event to all connected clients.
func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.remove(c)
		}
	}
}

// publish queues an event without blocking.
func (h *Hub) publish(ev Event) {
	ev.Seq = h.seq.Add(1)
	ev.Time = time.Now()
	select {
	case h.events <- ev:
	default:
		h.dropped.Add(1)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of events dropped because the queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

// EffectRun implements reactive.Instrumentation.
func (h *Hub) EffectRun(info reactive.EffectInfo) func() {
	h.publish(Event{Type: EventRun, Effect: &info})
	return func() {
		h.publish(Event{Type: EventRunEnd, Effect: &info})
	}
}

// Tracked implements reactive.Instrumentation.
func (h *Hub) Tracked(info reactive.EffectInfo, key any) {
	h.publish(Event{Type: EventTrack, Effect: &info, Key: keyString(key)})
}

// Triggered implements reactive.Instrumentation.
func (h *Hub) Triggered(key any, subscribers int) {
	h.publish(Event{Type: EventTrigger, Key: keyString(key), Subscribers: subscribers})
}

// Stopped implements reactive.Instrumentation.
func (h *Hub) Stopped(info reactive.EffectInfo) {
	h.publish(Event{Type: EventStop, Effect: &info})
}

// WriteRejected implements reactive.Instrumentation.
func (h *Hub) WriteRejected(key any) {
	h.publish(Event{Type: EventRejected, Key: keyString(key)})
}
