package ws

import (
	"encoding/json"
	"sync"
)

// RoomAll receives every production event regardless of facility.
const RoomAll = "ALL"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// facilityEvent is an internal struct for routing events to facility rooms
type facilityEvent struct {
	Facility string
	Event    Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by facility room
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *facilityEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *facilityEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.facility] == nil {
				h.rooms[client.facility] = make(map[*Client]bool)
			}
			h.rooms[client.facility][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.facility]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.facility)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			// The facility room plus the catch-all room.
			targets := []string{event.Facility}
			if event.Facility != RoomAll {
				targets = append(targets, RoomAll)
			}
			for _, room := range targets {
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// Client's send buffer is full, close and unregister
						close(client.send)
						delete(h.rooms[room], client)
						if len(h.rooms[room]) == 0 {
							delete(h.rooms, room)
						}
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToFacility sends an event to all clients watching the given
// facility, plus anyone in the catch-all room.
// This is the public API for handlers to broadcast events
func (h *Hub) BroadcastToFacility(facility string, event Event) {
	h.broadcast <- &facilityEvent{
		Facility: facility,
		Event:    event,
	}
}
