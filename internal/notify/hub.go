// Package notify delivers notifications: it persists them, pushes them to
// connected websocket clients and, when a broker is configured, republishes
// them over MQTT for mobile clients.
package notify

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vertilift/lift-maintenance/internal/middleware"
)

// Hub tracks live websocket connections keyed by user ID. A user may hold
// several connections at once (phone and browser).
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewHub creates an empty connection hub.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// HandleConnection upgrades an authenticated request to a websocket and
// keeps it registered until the client disconnects. The auth middleware has
// already validated the token (header or ?token= query parameter).
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.register(claims.UserID, conn)
	h.log.WithField("user_id", claims.UserID).Debug("Websocket client connected")

	defer func() {
		h.unregister(claims.UserID, conn)
		conn.Close()
		h.log.WithField("user_id", claims.UserID).Debug("Websocket client disconnected")
	}()

	// Drain the connection; clients only receive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Push writes a JSON payload to every live connection of a user. Delivery is
// best effort: a dead connection is dropped, not retried.
func (h *Hub) Push(userID string, payload interface{}) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[userID]))
	for conn := range h.clients[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.log.WithError(err).WithField("user_id", userID).Debug("Dropping dead websocket connection")
			h.unregister(userID, conn)
			conn.Close()
		}
	}
}

// ConnectedUsers returns the number of users with at least one live
// connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[userID][conn] = struct{}{}
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}
