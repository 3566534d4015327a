// Package notify pushes shift and untime alerts to connected staff clients
// over websockets. Delivery is best effort; a slow client is dropped rather
// than allowed to stall the hub.
package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is the wire payload for an alert. EndLocalTime is "HH:MM" in the
// organization timezone; EndAt is the same instant as RFC 3339.
type Event struct {
	Type         string `json:"type"`
	EndLocalTime string `json:"end_local_time,omitempty"`
	EndAt        string `json:"end_at,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	AlertMinutes int    `json:"alert_minutes,omitempty"`
}

const (
	EventShiftAlert  = "shift-alert"
	EventUnTimeAlert = "untime-alert"
)

type Client struct {
	StaffID string
	Conn    *websocket.Conn
	Send    chan []byte
}

func NewClient(staffID string, conn *websocket.Conn) *Client {
	return &Client{StaffID: staffID, Conn: conn, Send: make(chan []byte, 8)}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]bool)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.StaffID] == nil {
		h.clients[c.StaffID] = make(map[*Client]bool)
	}
	h.clients[c.StaffID][c] = true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.StaffID]; ok {
		if set[c] {
			delete(set, c)
			close(c.Send)
		}
		if len(set) == 0 {
			delete(h.clients, c.StaffID)
		}
	}
}

// Send delivers the event to every connection of the staff member. Clients
// with a full send buffer are dropped.
func (h *Hub) Send(staffID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[notify] marshal %s: %v", ev.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[staffID] {
		select {
		case c.Send <- data:
		default:
			delete(h.clients[staffID], c)
			close(c.Send)
		}
	}
	if len(h.clients[staffID]) == 0 {
		delete(h.clients, staffID)
	}
}

// ReadPump drains inbound frames until the connection closes. Staff clients
// never send meaningful frames; reading keeps pings and close frames flowing.
func (h *Hub) ReadPump(c *Client) {
	defer func() {
		h.Unregister(c)
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) WritePump(c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
