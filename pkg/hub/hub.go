package hub

import (
	"log/slog"
	"sync"

	"github.com/armkit/go-armteleop/internal/log"
)

// Hub maintains the set of connected dashboard clients and broadcasts
// telemetry events to them. Slow clients are dropped rather than
// allowed to stall the control loop's publish path.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	// last status event, replayed to newly connected clients so the
	// dashboard renders immediately instead of waiting a cycle
	lastStatus []byte
}

// New creates a hub. Call Run in a goroutine before serving clients.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.Component("hub").With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run drives registration and fan-out until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			replay := h.lastStatus
			h.mu.Unlock()
			if replay != nil {
				select {
				case client.send <- replay:
				default:
				}
			}
			h.logger.Info("client connected", "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down and disconnects every client. Idempotent is
// not required; callers stop the hub exactly once at shutdown.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast queues raw bytes for every client. Never blocks: if the
// queue is full the message is dropped, the next cycle replaces it.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastEvent encodes and broadcasts an event envelope. Status
// events are retained for replay to late joiners.
func (h *Hub) BroadcastEvent(event string, payload any) error {
	data, err := NewEvent(event, payload)
	if err != nil {
		return err
	}
	if event == EventStatus {
		h.mu.Lock()
		h.lastStatus = data
		h.mu.Unlock()
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
