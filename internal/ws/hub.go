package ws

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client wraps one live WebSocket connection. Writes are serialized through
// a mutex because gorilla connections allow only one concurrent writer.
// UserID and boundIDs are owned by the connection's reader goroutine.
type Client struct {
	ID     string
	UserID string

	// every identity this connection registered under; all of them are
	// unregistered from presence when the connection closes
	boundIDs []string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		conn: conn,
	}
}

// Send writes one JSON payload to the connection.
func (c *Client) Send(payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Hub tracks live connections and named broadcast rooms, and fans events out
// to them. Fanout is best-effort: a connection that fails to accept a write
// is closed and the failure is logged, never propagated.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Add registers a connection with the hub.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Remove drops a connection from the hub and from every room it joined.
func (h *Hub) Remove(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, clientID)
	for name, members := range h.rooms {
		delete(members, clientID)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
}

// Join adds a connection to a named room. Joining twice is a no-op.
func (h *Hub) Join(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][clientID] = c
}

// ToConns sends the payload to each of the given connection ids.
func (h *Hub) ToConns(connIDs []string, payload any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, payload)
	}
}

// ToRoom sends the payload to every member of a room.
func (h *Hub) ToRoom(room string, payload any) {
	h.toRoom(room, "", payload)
}

// ToRoomExcept sends the payload to every room member except one
// connection, typically the sender of a relayed chunk.
func (h *Hub) ToRoomExcept(room, exceptID string, payload any) {
	h.toRoom(room, exceptID, payload)
}

func (h *Hub) toRoom(room, exceptID string, payload any) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Client, 0, len(members))
	for id, c := range members {
		if id == exceptID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, payload)
	}
}

// All sends the payload to every connection.
func (h *Hub) All(payload any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, payload)
	}
}

func (h *Hub) deliver(c *Client, payload any) {
	if err := c.Send(payload); err != nil {
		log.Printf("ws: deliver to %s: %v", c.ID, err)
		c.conn.Close()
		// removal happens when the reader goroutine observes the close
	}
}
