// Package hub keeps the registry of connected observer channels (display
// boards, staff stations) and fans event payloads out to them. Delivery is
// best-effort: a slow client's payload is dropped and logged, never blocking
// the other clients or the triggering request.
package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// RoomDisplay and RoomStaff are the rooms observers can join. Both receive
// every queue event; the split exists so a transport can scope future
// event kinds without reshaping the hub.
const (
	RoomDisplay = "display"
	RoomStaff   = "staff"
)

type Client struct {
	ID   string
	Room string
	Send chan []byte
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

type SubscribeMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) SetRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Room = room
}

// Broadcast delivers payload to every subscribed client in room, or to all
// subscribed clients when room is empty. A client that has not joined a
// room receives nothing.
func (h *Hub) Broadcast(payload []byte, room string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.Room == "" {
			continue
		}
		if room != "" && client.Room != room {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Printf("hub drop payload client=%s room=%s", client.ID, client.Room)
		}
	}
}

// SendTo pushes a payload to one client, reporting whether it was accepted.
func (h *Hub) SendTo(client *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}
	select {
	case client.Send <- payload:
		return true
	default:
		log.Printf("hub drop payload client=%s room=%s", client.ID, client.Room)
		return false
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	if msg.Action == "subscribe" && msg.Room != RoomDisplay && msg.Room != RoomStaff {
		return SubscribeMessage{}, false
	}
	return msg, true
}
