// Package realtime pushes change notifications to connected users over
// websockets and drives the periodic refresh tick that tells clients to
// refetch.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types sent to clients.
const (
	EventRefresh         = "refresh"
	EventMealPlanCreated = "meal_plan.created"
	EventMealPlanDeleted = "meal_plan.deleted"
	EventMealLogChanged  = "meal_log.changed"
	EventProfileUpdated  = "profile.updated"
)

const sendBuffer = 64

// Event is a notification delivered to websocket clients. Data is the
// event-specific payload.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent stamps an event with the current time and encodes data.
func NewEvent(typ string, data any) (Event, error) {
	e := Event{Type: typ, Timestamp: time.Now().UTC()}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		e.Data = b
	}
	return e, nil
}

// Conn abstracts a websocket connection; *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket connection belonging to a user. A user may have
// several (multiple tabs or devices).
type Client struct {
	ID     string
	UserID string
	Send   chan []byte
	conn   Conn
}

// NewClient wraps conn for userID with a buffered outbound queue.
func NewClient(userID string, conn Conn) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		conn:   conn,
	}
}

// Hub tracks connected clients per user. All methods are safe for
// concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // user id -> clients
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register adds c to its user's client set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
}

// Unregister removes c and closes its Send channel. Calling it again for
// the same client is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
}

// Broadcast sends e to every connection of userID.
func (h *Hub) Broadcast(userID string, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.Type).Msg("[Broadcast] marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		deliver(c, data)
	}
}

// BroadcastAll sends e to every connected client.
func (h *Hub) BroadcastAll(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.Type).Msg("[BroadcastAll] marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			deliver(c, data)
		}
	}
}

// deliver queues data without blocking; a full buffer drops the message.
func deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("client", c.ID).Str("user", c.UserID).Msg("[deliver] send buffer full, dropping event")
	}
}

// ClientCount returns the number of connected clients across all users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// UserClientCount returns the number of connections userID has open.
func (h *Hub) UserClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

/* ─── Pumps ──────────────────────────────────────────────────────────── */

// WritePump writes queued events to the connection and pings it every
// pingPeriod. It returns when Send is closed or a write fails.
func (c *Client) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains inbound frames until the connection fails, then
// unregisters the client. Clients do not send anything meaningful; reading
// is what surfaces a closed connection.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
