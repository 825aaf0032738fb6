package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
)

const (
	sendBufferSize      = 64
	broadcastBufferSize = 1024
)

// Client is one subscribed websocket session.
type Client struct {
	hub      *Hub
	conn     *Conn
	identity model.Identity
	// regions the caller managed when it connected
	regions map[string]bool
	send    chan []byte
}

// NewClient subscribes identity to events of the given regions. Admins
// receive every event regardless of regions.
func NewClient(hub *Hub, conn *Conn, identity model.Identity, regions []string) *Client {
	c := &Client{
		hub:      hub,
		conn:     conn,
		identity: identity,
		regions:  make(map[string]bool, len(regions)),
		send:     make(chan []byte, sendBufferSize),
	}
	for _, id := range regions {
		c.regions[id] = true
	}
	return c
}

func (c *Client) wants(event model.EditEvent) bool {
	return c.identity.Admin || c.regions[event.RegionID]
}

type broadcastMessage struct {
	event model.EditEvent
	data  []byte
}

// Hub fans edit request events out to subscribed clients.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan broadcastMessage, broadcastBufferSize),
	}
}

// Run dispatches registrations and events until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Server is shutting down
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			// Register new client
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Edit feed client registered", map[string]interface{}{
				"user_app_id":   client.identity.UserAppID,
				"admin":         client.identity.Admin,
				"regions":       len(client.regions),
				"total_clients": total,
			})

		case client := <-h.unregister:
			// Unregister client
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Edit feed client unregistered", map[string]interface{}{
				"user_app_id":   client.identity.UserAppID,
				"total_clients": total,
			})

		case msg := <-h.broadcast:
			// Fan out to interested clients
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg broadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(msg.event) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// slow consumer
			delete(h.clients, client)
			close(client.send)
			logger.Warn("Edit feed client send buffer full, disconnecting", map[string]interface{}{
				"user_app_id": client.identity.UserAppID,
			})
		}
	}
}

// PublishEditEvent queues event for delivery. Events are dropped when the
// broadcast buffer is full.
func (h *Hub) PublishEditEvent(event model.EditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal edit event", err, nil)
		return
	}

	select {
	case h.broadcast <- broadcastMessage{event: event, data: data}:
	default:
		logger.Warn("Edit feed broadcast buffer full, event dropped", map[string]interface{}{
			"type":            event.Type,
			"edit_request_id": event.EditRequestID,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount reports the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
