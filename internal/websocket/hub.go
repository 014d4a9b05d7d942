package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/citievents/internal/model"
)

// Message is a sync notification pushed to every console client. Type is
// "<entity>_<action>", e.g. "items_refreshed" or "motivation_created".
type Message struct {
	Type   string   `json:"type"`
	Entity string   `json:"entity"`
	Action string   `json:"action"`
	ID     model.ID `json:"id,omitempty"`
	Data   any      `json:"data,omitempty"`
}

func NewMessage(entity, action string, id model.ID, data any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Data:   data,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	greeting func() (Message, bool)
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// SetGreeting sets a message sent to each client right after it registers,
// so a fresh console learns the current sync state without waiting for the
// next broadcast.
func (h *Hub) SetGreeting(fn func() (Message, bool)) {
	h.mu.Lock()
	h.greeting = fn
	h.mu.Unlock()
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	greeting := h.greeting
	h.mu.Unlock()

	if greeting == nil {
		return
	}
	if msg, ok := greeting(); ok {
		if data, err := json.Marshal(msg); err == nil {
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. Slow clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
