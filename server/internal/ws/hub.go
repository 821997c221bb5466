package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/logship/server/internal/api"
	"github.com/obsidianstack/logship/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 64

	// backlog is the number of recent records sent to a client on connect.
	backlog = 50
)

// Event names carried in Message.Event.
const (
	EventHealth  = "health"
	EventRecords = "records"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub manages WebSocket client connections. It pushes every accepted batch
// of records as it arrives and the server health on every interval.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool // set once Run has shut the hub down
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads from st and pushes health every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the health ticker loop. Run blocks until ctx is cancelled, then
// closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			if data, err := json.Marshal(Message{Event: EventHealth, Data: api.BuildHealth(h.store)}); err == nil {
				h.broadcast(data)
			}
		}
	}
}

// Publish pushes newly accepted records to every connected client.
func (h *Hub) Publish(entries []*store.Entry) {
	if len(entries) == 0 {
		return
	}
	data, err := json.Marshal(Message{Event: EventRecords, Data: api.ToRecordResponses(entries)})
	if err != nil {
		return
	}
	h.broadcast(data)
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends the current health and the most recent records immediately on
// connect, then streams updates. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	for _, msg := range h.greeting() {
		c.send <- msg
	}
	if !h.register(c) {
		c.goingAway()
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writeLoop()
	c.readLoop()
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) greeting() [][]byte {
	var out [][]byte
	if data, err := json.Marshal(Message{Event: EventHealth, Data: api.BuildHealth(h.store)}); err == nil {
		out = append(out, data)
	}
	recent := h.store.List("")
	if len(recent) > backlog {
		recent = recent[len(recent)-backlog:]
	}
	if len(recent) > 0 {
		if data, err := json.Marshal(Message{Event: EventRecords, Data: api.ToRecordResponses(recent)}); err == nil {
			out = append(out, data)
		}
	}
	return out
}

// register adds c unless the hub has already shut down.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.trySend(c, data)
	}
}

// trySend queues data for c, disconnecting it when its buffer is full.
// The send happens under the read lock so it cannot race with close.
func (h *Hub) trySend(c *client, data []byte) {
	h.mu.RLock()
	if _, ok := h.clients[c]; !ok {
		h.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writeLoop forwards queued messages to the connection and pings it every
// pingPeriod. A closed send channel means the hub dropped the client.
func (c *client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.goingAway()
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

func (c *client) write(kind int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, data)
}

// goingAway tells the peer the server is dropping it.
func (c *client) goingAway() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// readLoop discards inbound frames so pongs and close frames are processed.
// It returns once the peer disconnects or stops answering pings.
func (c *client) readLoop() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	_ = extend("")
	c.conn.SetPongHandler(extend)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}
