// Package hub provides a thread-safe websocket broadcast hub for the face
// dashboard, using the channel-based fan-out pattern.
package hub

import (
	"sync"

	"github.com/teslashibe/go-reachy-face/internal/log"
	"github.com/teslashibe/go-reachy-face/pkg/protocol"
)

// Hub maintains the set of subscribed dashboard clients and fans messages
// out to them. Slow clients are disconnected rather than allowed to stall
// the engine-side broadcast.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// New creates a hub. name shows up in logs only.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's main loop; call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("dashboard client connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Debug("dashboard client disconnected", "hub", h.name, "remaining", count)

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
					log.Warn("dropped slow dashboard client", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast encodes and fans out a protocol message. Never blocks; when the
// broadcast buffer is full the message is dropped (the dashboard is a
// mirror, not a source of truth).
func (h *Hub) Broadcast(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		log.Warn("hub: encode failed", "hub", h.name, "err", err)
		return
	}
	h.BroadcastBytes(data)
}

// BroadcastBytes fans out a pre-encoded message.
func (h *Hub) BroadcastBytes(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Warn("hub: broadcast buffer full, dropping", "hub", h.name)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
