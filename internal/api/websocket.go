package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/homebot/homebot-core/internal/control"
	"github.com/homebot/homebot-core/internal/infrastructure/config"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
	"github.com/homebot/homebot-core/internal/location"
)

// WebSocket message types.
const (
	WSTypeJoinRoom  = "join-room"
	WSTypeLeaveRoom = "leave-room"
	WSTypeJoined    = "joined"
	WSTypeLeft      = "left"
	WSTypePing      = "ping"
	WSTypePong      = "pong"
	WSTypeEvent     = "event"
	WSTypeError     = "error"
)

// WebSocket defaults applied when the config leaves a value unset.
const (
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
	defaultWSSendBuffer     = 64
)

// WSMessage is a frame sent to a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	Event     string `json:"event,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Room      string `json:"room,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// wsRequest is a frame received from a client.
type wsRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// Hub tracks WebSocket clients and fans router events out to them.
// It implements control.Notifier.
//
// Every client is subscribed to the global channel and may join any number
// of room channels. Delivery is at-most-once: a client whose send buffer is
// full misses the frame.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

var _ control.Notifier = (*Hub)(nil)

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]struct{}
	mu       sync.RWMutex
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub. Zero config values take defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultWSMaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultWSPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultWSPongTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultWSSendBuffer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger.With("component", "websocket"),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetWSClients(n)
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	metrics.SetWSClients(n)
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Notify sends one event frame per channel to the clients in that channel.
// Channels nobody has joined are skipped.
func (h *Hub) Notify(event string, channels []string, payload any) {
	metrics.IncBroadcast(event)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	// Snapshot client list under hub lock, then release before sending
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, channel := range channels {
		var data []byte
		for _, client := range clients {
			if !client.inChannel(channel) {
				continue
			}
			if data == nil {
				var err error
				data, err = json.Marshal(WSMessage{
					Type:      WSTypeEvent,
					Event:     event,
					Channel:   channel,
					Timestamp: timestamp,
					Payload:   payload,
				})
				if err != nil {
					h.logger.Error("failed to marshal event", "event", event, "error", err)
					return
				}
			}
			if !client.trySend(data) {
				metrics.IncDropped()
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
	metrics.SetWSClients(0)
}

// newClient creates a client subscribed to the global channel.
func (h *Hub) newClient(conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, h.cfg.SendBuffer),
		channels: map[string]struct{}{control.GlobalChannel: {}},
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := s.hub.newClient(conn)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message counts as liveness.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(WSMessage{Type: WSTypeError, Message: "invalid JSON message"})
		return
	}

	switch req.Type {
	case WSTypeJoinRoom:
		channel := location.ChannelName(strings.TrimSpace(req.Room))
		if channel == "" {
			c.reply(WSMessage{Type: WSTypeError, Message: "room is required"})
			return
		}
		c.join(channel)
		c.reply(WSMessage{Type: WSTypeJoined, Room: channel})
	case WSTypeLeaveRoom:
		channel := location.ChannelName(strings.TrimSpace(req.Room))
		c.leave(channel)
		c.reply(WSMessage{Type: WSTypeLeft, Room: channel})
	case WSTypePing:
		c.reply(WSMessage{Type: WSTypePong})
	default:
		c.reply(WSMessage{Type: WSTypeError, Message: "unknown message type: " + req.Type})
	}
}

// join adds the client to a channel.
func (c *WSClient) join(channel string) {
	c.mu.Lock()
	c.channels[channel] = struct{}{}
	c.mu.Unlock()
}

// leave removes the client from channel, or from every room channel when
// channel is empty. The global channel cannot be left.
func (c *WSClient) leave(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if channel == "" {
		c.channels = map[string]struct{}{control.GlobalChannel: {}}
		return
	}
	if channel != control.GlobalChannel {
		delete(c.channels, channel)
	}
}

// inChannel reports whether the client receives events for channel.
func (c *WSClient) inChannel(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// trySend queues data for the client. It reports false when the buffer is
// full or the client has already disconnected.
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil { // send on closed channel
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// reply sends a control frame to this client only.
func (c *WSClient) reply(msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}
