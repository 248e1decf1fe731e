// Package websocket pushes pipeline activity (summaries, dispatches) to
// connected dashboard clients.
package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Message is the envelope written to every client
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled. It must be
// called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Str("remote", client.remoteAddr()).Int("clients", total).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Str("remote", client.remoteAddr()).Int("clients", total).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.logger.Warn().Str("remote", client.remoteAddr()).Msg("WebSocket send buffer full, dropping client")
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a typed message for every client. It never blocks the
// caller: when the hub is saturated the message is dropped.
func (h *Hub) Broadcast(kind string, payload any) {
	data, err := json.Marshal(Message{Type: kind, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", kind).Msg("Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Str("type", kind).Msg("WebSocket broadcast queue full, message dropped")
	}
}

// Register adds client to the hub. Once the hub has stopped the client's send
// channel is closed instead, which ends its write pump.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
