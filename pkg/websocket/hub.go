package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"calltriage/pkg/logger"
)

const (
	MessageTypeWelcome          = "welcome"
	MessageTypeEmergencyCreated = "emergency_created"
	MessageTypeSubscribe        = "subscribe"
	MessageTypeUnsubscribe      = "unsubscribe"

	// RoomCritical receives emergencies at or above CriticalScore.
	RoomCritical  = "critical"
	CriticalScore = 80
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type Message struct {
	Type      string                 `json:"type"`
	Rooms     []string               `json:"rooms,omitempty"`
	ClientID  string                 `json:"client_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run owns client registration and fan-out until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Register attaches client to the hub. It returns false once the hub has
// shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister detaches client. It is a no-op after shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues a message for delivery. It never blocks the caller; when
// the queue is full the message is dropped.
func (h *Hub) Publish(message Message) bool {
	if message.Timestamp == 0 {
		message.Timestamp = getCurrentTimestamp()
	}
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.WithField("message_type", message.Type).Warn("Websocket broadcast queue full, dropping message")
		return false
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.logger.WithField("client_id", client.ID).Info("Dashboard client connected")

	h.send(client, Message{
		Type:      MessageTypeWelcome,
		ClientID:  client.ID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected to emergency feed",
		},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.drop(client) {
		h.logger.WithField("client_id", client.ID).Info("Dashboard client disconnected")
	}
}

func (h *Hub) broadcastMessage(message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if wants(client, message) {
			h.send(client, message)
		}
	}
}

// wants reports whether client should receive message. Clients without
// subscriptions receive everything; subscribed clients only receive
// messages tagged with one of their rooms.
func wants(client *Client, message Message) bool {
	if len(client.rooms) == 0 {
		return true
	}
	for _, room := range message.Rooms {
		if client.rooms[room] {
			return true
		}
	}
	return false
}

// send must be called with the mutex held. Slow clients are disconnected.
func (h *Hub) send(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket message")
		return
	}
	select {
	case client.send <- data:
	default:
		h.drop(client)
	}
}

// drop must be called with the mutex held.
func (h *Hub) drop(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.send)
	return true
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		h.drop(client)
	}
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(client.rooms, roomID)
}

// TypeRoom names the room that follows one emergency type.
func TypeRoom(emergencyType string) string {
	return "type_" + emergencyType
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
