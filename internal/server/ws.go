package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/handmirror/internal/server/api"
	"github.com/ayusman/handmirror/internal/session"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// goAway sends a close frame and closes the connection, which ends the
// client's read loop.
func (c *client) goAway() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}

// StateHub pushes a session snapshot to every connected WebSocket client.
// New clients receive the current state immediately, then one message per
// processed frame.
type StateHub struct {
	source  api.Snapshotter
	logger  *zap.Logger
	clients map[*client]struct{}
	closed  bool
	mu      sync.RWMutex
}

// NewStateHub creates a hub that reads the initial state from source.
func NewStateHub(source api.Snapshotter, logger *zap.Logger) *StateHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateHub{
		source:  source,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	if msg, err := json.Marshal(h.source.Snapshot()); err == nil {
		if err := c.write(msg); err != nil {
			return
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.goAway()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *StateHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends snap to all connected clients. Clients that fail to accept
// the write are dropped. It has the signature of an app frame listener.
func (h *StateHub) Broadcast(snap session.Snapshot) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("failed to encode snapshot", zap.Error(err))
		return
	}

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.logger.Debug("dropping websocket client", zap.Error(err))
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.conn.Close()
		}
	}
}

// Close disconnects every client and rejects new ones. http.Server.Shutdown
// does not touch hijacked connections, so the server calls this on shutdown.
func (h *StateHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.goAway()
	}
}
