package ws

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/pasticeri/api/internal/events"
)

// AdminRoom receives every order event.
const AdminRoom = "admin"

// CustomerRoom is the room a customer's connections join.
func CustomerRoom(email string) string {
	return "customer:" + strings.ToLower(strings.TrimSpace(email))
}

// roomEvent is an internal struct for routing a message to one room
type roomEvent struct {
	room    string
	message []byte
}

// Hub maintains the set of active clients and broadcasts order events to them.
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[event.room] {
				select {
				case client.send <- event.message:
				default:
					// Slow consumer, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room. Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Publish sends event to the admin room and to the owning customer's room.
// It never blocks: when the hub is backed up the event is dropped.
func (h *Hub) Publish(ctx context.Context, event events.OrderEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("WARN: ws: marshal %s event: %v", event.Type, err)
		return
	}

	for _, room := range []string{AdminRoom, CustomerRoom(event.Order.CustomerEmail)} {
		select {
		case h.broadcast <- &roomEvent{room: room, message: message}:
		case <-ctx.Done():
			return
		default:
			log.Printf("WARN: ws: broadcast queue full, dropping %s for order %s", event.Type, event.Order.ID)
		}
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount reports the number of connected clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
