package services

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// SSEMessage is one frame written to an event stream
type SSEMessage struct {
	Event string
	Data  string
}

// SSEClient is a connected browser tab
type SSEClient struct {
	ID       string
	UserID   string
	Messages chan SSEMessage
}

// SSEHub keeps the open event streams and broadcasts change events to them
type SSEHub struct {
	mu      sync.RWMutex
	clients map[string]*SSEClient
	logger  *zap.Logger
}

// NewSSEHub creates an empty hub
func NewSSEHub(logger *zap.Logger) *SSEHub {
	return &SSEHub{
		clients: make(map[string]*SSEClient),
		logger:  logger,
	}
}

// Register adds a client with a buffered channel
func (h *SSEHub) Register(id, userID string) *SSEClient {
	client := &SSEClient{ID: id, UserID: userID, Messages: make(chan SSEMessage, 32)}

	h.mu.Lock()
	h.clients[id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("SSE client registered", zap.String("client_id", id), zap.String("user_id", userID), zap.Int("total", total))
	return client
}

// Unregister closes the client's channel and forgets it
func (h *SSEHub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[id]; ok {
		close(client.Messages)
		delete(h.clients, id)
		h.logger.Debug("SSE client unregistered", zap.String("client_id", id), zap.Int("total", len(h.clients)))
	}
}

// ClientCount returns the number of open streams
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every client, dropping it for clients whose buffer is full
func (h *SSEHub) Broadcast(msg SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Messages <- msg:
		default:
			h.logger.Warn("SSE client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
}

// HandleEvent is an EventBus listener that forwards change events to the streams
func (h *SSEHub) HandleEvent(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Broadcast(SSEMessage{Event: string(event.Type), Data: string(data)})
	return nil
}
