package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is one message pushed to connected admin dashboards: booking
// lifecycle changes and reconciliation job summaries.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub manages all admin feed connections and fans events out to them.
type Hub struct {
	clients map[*Client]bool

	Broadcast  chan *Event
	Register   chan *Client
	Unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan *Event, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("🔌 Admin feed client connected: user %d", client.UserID)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Admin feed client disconnected: user %d", client.UserID)

		case event := <-h.Broadcast:
			h.broadcastEvent(event)
		}
	}
}

func (h *Hub) broadcastEvent(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to marshal event %q: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			log.Printf("⚠️ Dropping event %q for slow client (user %d)", event.Type, client.UserID)
		}
	}
}

// NotifyBookingEvent implements the booking service's Notifier. It never
// blocks the calling request: when the broadcast buffer is full the event
// is dropped.
func (h *Hub) NotifyBookingEvent(eventType string, data interface{}) {
	event := &Event{Type: eventType, Data: data, Timestamp: time.Now()}
	select {
	case h.Broadcast <- event:
	default:
		log.Printf("⚠️ Event buffer full, dropping %q", eventType)
	}
}
