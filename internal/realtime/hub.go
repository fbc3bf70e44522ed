// Package realtime streams live roster updates to web clients over
// WebSocket. Clients subscribe to an event channel and receive a fresh
// roster whenever a registration changes.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains channel_id -> set of connections and broadcasts roster
// updates. Cross-instance fan-out rides on the shared notice bus, so the
// hub itself only delivers locally.
type Hub struct {
	rooms  map[int64]map[string]*Client
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[int64]map[string]*Client),
		logger: logger,
	}
}

// Register adds a client to its channel room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.ChannelID] == nil {
		h.rooms[c.ChannelID] = make(map[string]*Client)
	}
	h.rooms[c.ChannelID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined roster feed",
		zap.String("client_id", c.ID), zap.Int64("channel_id", c.ChannelID))
}

// Unregister removes a client from its channel room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.ChannelID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.ChannelID)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left roster feed",
		zap.String("client_id", c.ID), zap.Int64("channel_id", c.ChannelID))
}

// Broadcast sends a message to all clients watching a channel.
func (h *Hub) Broadcast(channelID int64, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}

	// Snapshot the room under the lock; registrations may mutate the map
	// while the sends below proceed.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[channelID]))
	for _, c := range h.rooms[channelID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// AudienceCount returns the number of connected clients for a channel.
func (h *Hub) AudienceCount(channelID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channelID])
}
