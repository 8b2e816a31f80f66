package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Config struct {
	ReadBufferSize   int
	WriteBufferSize  int
	HandshakeTimeout time.Duration
	// MaxConnections caps concurrent dashboards; zero means no cap.
	MaxConnections int
	// AllowedOrigins lists accepted Origin headers; empty or "*" accepts all.
	AllowedOrigins []string
}

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	maxConns int
}

func NewHandler(hub *Hub, config Config) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
			HandshakeTimeout: config.HandshakeTimeout,
			CheckOrigin:      checkOrigin(config.AllowedOrigins),
		},
		maxConns: config.MaxConnections,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// HandleWebSocket upgrades the request and attaches a dashboard client to
// the hub. The optional ?type= query subscribes to one emergency type.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	if h.maxConns > 0 && h.hub.ClientCount() >= h.maxConns {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	if emergencyType := c.Query("type"); emergencyType != "" {
		h.hub.JoinRoom(client, TypeRoom(emergencyType))
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEmergency pushes a new-emergency notice to the dashboards. It
// is tagged with the type room, and with the critical room when the score
// warrants it.
func (h *Handler) BroadcastEmergency(emergencyID, emergencyType string, priorityScore int, data map[string]interface{}) bool {
	payload := make(map[string]interface{}, len(data)+3)
	for k, v := range data {
		payload[k] = v
	}
	payload["emergency_id"] = emergencyID
	payload["emergency_type"] = emergencyType
	payload["priority_score"] = priorityScore

	rooms := []string{TypeRoom(emergencyType)}
	if priorityScore >= CriticalScore {
		rooms = append(rooms, RoomCritical)
	}

	return h.hub.Publish(Message{Type: MessageTypeEmergencyCreated, Rooms: rooms, Data: payload})
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
