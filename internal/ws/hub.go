// Package ws pushes ledger and payment events to browsers over websockets.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

const sendBuffer = 256

// Client represents a single WebSocket connection. A zero RaffleID follows
// every raffle; a zero UserID is an anonymous viewer.
type Client struct {
	UserID   primitive.ObjectID
	RaffleID primitive.ObjectID
	Send     chan []byte
	hub      *Hub
	mu       sync.Mutex
	closed   bool
}

// NewClient returns a client with a buffered send queue.
func NewClient(userID, raffleID primitive.ObjectID) *Client {
	return &Client{UserID: userID, RaffleID: raffleID, Send: make(chan []byte, sendBuffer)}
}

// Close unregisters the client and closes its queue. It is safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

func (c *Client) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub maintains the set of active clients and broadcasts to them. It
// implements the services Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[primitive.ObjectID]map[*Client]struct{}
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[primitive.ObjectID]map[*Client]struct{}),
		now:     time.Now,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
	if c.UserID.IsZero() {
		return
	}
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// Publish sends the event to its audience: the owning user for user-scoped
// payloads, subscribers of the raffle for raffle-scoped ones, everyone
// otherwise. Slow clients drop messages instead of blocking the publisher.
func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(models.Event{Topic: topic, Payload: payload, SentAt: h.now()})
	if err != nil {
		slog.Error("encode event", "topic", topic, "error", err)
		return
	}

	var targets []*Client
	h.mu.RLock()
	switch p := payload.(type) {
	case models.UserScoped:
		for c := range h.byUser[p.UserKey()] {
			targets = append(targets, c)
		}
	case models.RaffleScoped:
		raffleID := p.RaffleKey()
		for c := range h.clients {
			if c.RaffleID.IsZero() || c.RaffleID == raffleID {
				targets = append(targets, c)
			}
		}
	default:
		for c := range h.clients {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range targets {
		if !c.deliver(data) {
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("websocket clients lagging", "topic", topic, "dropped", dropped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
