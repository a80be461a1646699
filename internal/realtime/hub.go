// Package realtime pushes report updates to live clients: WebSocket
// connections held by this process, and optionally an AWS IoT MQTT topic per
// area for clients connected elsewhere.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vapi/internal/domain/entities"
	"vapi/internal/geo"
	"vapi/internal/repository"
	"vapi/pkg/utils"
)

const (
	maxMessageSize = 4096
	sendBufferSize = 16
)

// Message types sent by the server.
const (
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypeUnsubscribed          = "unsubscribed"
	TypeError                 = "error"
)

// ClientMessage is what a client sends over the socket.
type ClientMessage struct {
	Action string `json:"action"`
	Area   string `json:"area,omitempty"`
}

// ServerMessage acknowledges a client message or reports a problem with it.
// Report updates are sent as entities.ReportUpdate.
type ServerMessage struct {
	Type  string `json:"type"`
	Area  string `json:"area,omitempty"`
	Error string `json:"error,omitempty"`
}

// HubOptions tunes socket keep-alive.
type HubOptions struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Hub owns the WebSocket connections of this process. Which connection
// watches which area is kept in a SubscriptionRegistry, so the mapping can
// be shared between instances; the hub only ever writes to its own sockets
// and skips subscriber IDs it does not hold.
//
// Go Learning Note — One Writer per Connection:
// gorilla/websocket allows one concurrent reader and one concurrent writer
// per connection. Each client therefore gets a writePump goroutine that is
// the only code calling WriteMessage; everyone else hands it bytes through
// the buffered send channel. Close and WriteControl are the exceptions the
// library allows from any goroutine.
type Hub struct {
	registry repository.SubscriptionRegistry
	logger   *zap.Logger
	opts     HubOptions
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(registry repository.SubscriptionRegistry, logger *zap.Logger, opts HubOptions) *Hub {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		opts:     opts,
		upgrader: websocket.Upgrader{
			// Mobile clients send no Origin header; browsers are not the
			// audience of this endpoint.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   utils.NewConnectionID(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("websocket connected", zap.String("conn_id", c.id))

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

// Publish sends update to every local connection subscribed to area.
// Connections whose buffer is full are dropped.
func (h *Hub) Publish(ctx context.Context, area string, update entities.ReportUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}

	ids, err := h.registry.ListSubscribers(ctx, area)
	if err != nil {
		return err
	}

	delivered := 0
	for _, id := range ids {
		h.mu.RLock()
		c, ok := h.clients[id]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		if h.enqueue(c, payload) {
			delivered++
		} else {
			h.logger.Warn("dropping slow websocket client", zap.String("conn_id", c.id))
			h.remove(c)
		}
	}

	h.logger.Debug("report update published",
		zap.String("area", area),
		zap.Int("subscribers", len(ids)),
		zap.Int("delivered", delivered),
	)
	return nil
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.remove(c)

	pongWait := 2 * h.opts.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		h.reply(c, h.handleMessage(ctx, c, data))
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *client, data []byte) ServerMessage {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{Type: TypeError, Error: "Invalid message format"}
	}

	switch msg.Action {
	case "subscribe":
		if strings.TrimSpace(msg.Area) == "" {
			return ServerMessage{Type: TypeError, Error: "Missing area parameter"}
		}
		area, ok := normalizeArea(msg.Area)
		if !ok {
			return ServerMessage{Type: TypeError, Error: "Invalid area: expected a geohash of at least 5 characters"}
		}
		if err := h.registry.Subscribe(ctx, c.id, area); err != nil {
			h.logger.Error("subscribe failed", zap.String("conn_id", c.id), zap.Error(err))
			return ServerMessage{Type: TypeError, Error: "Subscription failed"}
		}
		return ServerMessage{Type: TypeSubscriptionConfirmed, Area: area}

	case "unsubscribe":
		if err := h.registry.Unsubscribe(ctx, c.id); err != nil {
			h.logger.Error("unsubscribe failed", zap.String("conn_id", c.id), zap.Error(err))
			return ServerMessage{Type: TypeError, Error: "Unsubscribe failed"}
		}
		return ServerMessage{Type: TypeUnsubscribed}

	default:
		return ServerMessage{Type: TypeError, Error: "Unknown action"}
	}
}

// normalizeArea accepts any geohash of at least AreaPrecision characters
// and reduces it to its area.
func normalizeArea(area string) (string, bool) {
	area = strings.ToLower(strings.TrimSpace(area))
	if len(area) < geo.AreaPrecision {
		return "", false
	}
	if _, err := geo.BoundingBox(area); err != nil {
		return "", false
	}
	return geo.AreaHash(area), true
}

func (h *Hub) reply(c *client, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !h.enqueue(c, payload) {
		h.remove(c)
	}
}

// enqueue hands payload to the writer without blocking. It reports false
// when the client's buffer is full.
func (h *Hub) enqueue(c *client, payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writePump is the only goroutine writing data frames to c.conn.
//
// Go Learning Note — select Statement:
// select waits on several channel operations at once. Here it multiplexes
// outgoing messages, the keep-alive ticker, and the done signal that ends
// the goroutine when the connection is removed.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				h.remove(c)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// remove forgets the client, drops its subscription and closes the socket.
// Safe to call more than once and from any goroutine.
func (h *Hub) remove(c *client) {
	c.closeOnce.Do(func() {
		close(c.done)

		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()

		if err := h.registry.Unsubscribe(context.Background(), c.id); err != nil {
			h.logger.Warn("drop subscription failed", zap.String("conn_id", c.id), zap.Error(err))
		}

		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()
		h.logger.Debug("websocket disconnected", zap.String("conn_id", c.id))
	})
}
