package ws

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chessroom/internal/metrics"
	"chessroom/internal/protocol"
)

// Hub tracks which connections belong to which session group and delivers
// group-scoped broadcasts. Group membership is driven by the protocol
// handler (join/leave), never inferred from the transport.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[protocol.Conn]struct{}
	upgrader websocket.Upgrader
}

// NewHub returns a hub whose upgrader accepts the given origins. An empty
// list or "*" allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		rooms: make(map[string]map[protocol.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients (CLI, tests) send no Origin header.
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWS upgrades the request and services the connection until it
// drops. The read loop runs on the request goroutine.
func (h *Hub) HandleWS(handler *protocol.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade failed: %v", err)
			return
		}

		client := newClient(uuid.NewString(), conn)
		metrics.TotalConnections.Inc()
		metrics.ActiveConnections.Inc()

		go client.writePump()
		client.readPump(handler)
		metrics.ActiveConnections.Dec()
	}
}

// Join adds c to the session group.
func (h *Hub) Join(sessionID string, c protocol.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[protocol.Conn]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
}

// Leave removes c from the session group, dropping the group when it
// empties.
func (h *Hub) Leave(sessionID string, c protocol.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Broadcast sends msg to every connection in the session group and no one
// else.
func (h *Hub) Broadcast(sessionID string, msg protocol.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[sessionID] {
		c.Send(msg)
	}
}

// Group reports the number of connections in a session group.
func (h *Hub) Group(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
