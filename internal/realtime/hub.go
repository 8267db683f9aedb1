package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/logger"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 32
)

// Message represents a JSON payload delivered to realtime subscribers.
type Message struct {
	Stream string `json:"stream"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Option customises a Hub.
type Option func(*Hub)

// WithAllowedOrigins accepts websocket upgrades from the listed browser
// origins in addition to same-host and loopback origins. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		for _, origin := range origins {
			origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
			if origin != "" {
				h.origins[origin] = struct{}{}
			}
		}
	}
}

// Hub fans out stream messages to connected websocket clients.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*connection]struct{}
	origins       map[string]struct{}
	upgrader      websocket.Upgrader
	log           *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subscriptions: make(map[string]map[*connection]struct{}),
		origins:       make(map[string]struct{}),
		log:           logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Serve upgrades the request and subscribes the client to streams. The
// allowed set limits which streams the client may ever join; nil permits all.
func (h *Hub) Serve(clientID string, streams []string, allowed map[string]struct{}, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newConnection(h, conn, clientID, allowed)
	metrics.RealtimeConnections.Inc()
	h.subscribe(client, streams)

	go client.writeLoop()
	client.readLoop()
}

// Publish delivers an event to every subscriber of stream.
func (h *Hub) Publish(stream, event string, data any) {
	h.Broadcast(Message{Stream: stream, Event: event, Data: data})
}

// Broadcast delivers message to every subscriber of message.Stream.
func (h *Hub) Broadcast(message Message) {
	message.Stream = normalizeStream(message.Stream)
	if message.Stream == "" {
		return
	}

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.subscriptions[message.Stream]))
	for client := range h.subscriptions[message.Stream] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(message)
	}
}

// Subscribers returns the number of clients listening on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[normalizeStream(stream)])
}

func (h *Hub) subscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed() {
		return
	}
	for _, stream := range uniqueStreams(streams) {
		if !client.isAllowed(stream) {
			h.log.Debug("ignoring unauthorized stream", zap.String("stream", stream), zap.String("client", client.id))
			continue
		}
		if h.subscriptions[stream] == nil {
			h.subscriptions[stream] = make(map[*connection]struct{})
		}
		h.subscriptions[stream][client] = struct{}{}
		client.streams[stream] = struct{}{}
	}
}

func (h *Hub) unsubscribe(client *connection, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.removeLocked(client, stream)
	}
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range client.streams {
		h.removeLocked(client, stream)
	}
}

func (h *Hub) removeLocked(client *connection, stream string) {
	delete(client.streams, stream)
	clients, ok := h.subscriptions[stream]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.subscriptions, stream)
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if _, ok := h.origins["*"]; ok {
		return true
	}
	if _, ok := h.origins[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := hostWithoutPort(parsed.Host)
	return strings.EqualFold(originHost, hostWithoutPort(r.Host)) || isLoopback(originHost)
}

type connection struct {
	hub     *Hub
	socket  *websocket.Conn
	id      string
	streams map[string]struct{}
	allowed map[string]struct{}
	send    chan Message

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(hub *Hub, conn *websocket.Conn, id string, allowed map[string]struct{}) *connection {
	return &connection{
		hub:     hub,
		socket:  conn,
		id:      id,
		streams: make(map[string]struct{}),
		allowed: allowed,
		send:    make(chan Message, defaultBufferSize),
		done:    make(chan struct{}),
	}
}

// enqueue drops clients that cannot keep up instead of blocking publishers.
func (c *connection) enqueue(message Message) {
	select {
	case <-c.done:
	case c.send <- message:
	default:
		c.hub.log.Warn("dropping slow realtime client", zap.String("client", c.id))
		c.close()
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected websocket close", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Debug("invalid control payload", zap.String("client", c.id), zap.Error(err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			c.hub.subscribe(c, ctrl.Streams)
		case "unsubscribe":
			c.hub.unsubscribe(c, ctrl.Streams)
		case "ping":
			c.enqueue(Message{Event: "pong"})
		default:
			c.hub.log.Debug("unsupported control action", zap.String("action", ctrl.Action), zap.String("client", c.id))
		}
	}
}

func (c *connection) writeLoop() {
	defer func() {
		c.close()
		_ = c.socket.Close()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close marks the connection done before unregistering it, so a subscribe
// racing with a slow-client drop cannot re-add it afterwards.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.unregister(c)
		metrics.RealtimeConnections.Dec()
	})
}

func (c *connection) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *connection) isAllowed(stream string) bool {
	if c.allowed == nil {
		return true
	}
	_, ok := c.allowed[stream]
	return ok
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	var result []string
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, exists := seen[stream]; exists {
			continue
		}
		seen[stream] = struct{}{}
		result = append(result, stream)
	}
	return result
}
