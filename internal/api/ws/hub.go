package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/camwatch/internal/observability"
	"github.com/yourusername/camwatch/internal/storage"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected WebSocket subscriber.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	cameraID string // optional filter
}

// Hub maintains active WebSocket clients and pushes motion events to them
// as they happen.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a WebSocket event hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			h.logger.Debug("WebSocket client connected",
				zap.String("filter", client.cameraID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Clients dropped by dispatch were already counted out.
				observability.WSConnections.Dec()
			}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.dispatch(message)
		}
	}
}

func (h *Hub) dispatch(message []byte) {
	var event storage.MotionEvent
	filterable := json.Unmarshal(message, &event) == nil

	var dropped []*Client

	h.mu.RLock()
	for client := range h.clients {
		if client.cameraID != "" && filterable && event.CameraID != client.cameraID {
			continue
		}

		select {
		case client.send <- message:
		default:
			// Client buffer full; disconnect it below.
			dropped = append(dropped, client)
		}
	}
	h.mu.RUnlock()

	if len(dropped) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range dropped {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			observability.WSConnections.Dec()
		}
	}
	h.mu.Unlock()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishEvent broadcasts a motion event to all connected clients.
// Implements the watcher's EventSink.
func (h *Hub) PublishEvent(event *storage.MotionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal motion event", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Event broadcast buffer full, dropping event")
	}
}

// HandleWS upgrades the request and registers the client. An optional
// camera_id query parameter filters events to a single camera.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, 64),
		cameraID: c.Query("camera_id"),
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	// Incoming messages are ignored; this loop only detects disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
