package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names a committed change
type EventType string

const (
	EventWorkOrderChanged       EventType = "work_order.changed"
	EventMaterialRequestChanged EventType = "material_request.changed"
	EventInventoryChanged       EventType = "inventory.changed"
	EventPurchaseOrderChanged   EventType = "purchase_order.changed"
	EventResourceRequestChanged EventType = "resource_request.changed"
	EventSupportTicketChanged   EventType = "support_ticket.changed"
	EventAdminChanged           EventType = "admin.changed"
	EventSnapshotImported       EventType = "snapshot.imported"
)

// AllEventTypes lists every event services publish
var AllEventTypes = []EventType{
	EventWorkOrderChanged,
	EventMaterialRequestChanged,
	EventInventoryChanged,
	EventPurchaseOrderChanged,
	EventResourceRequestChanged,
	EventSupportTicketChanged,
	EventAdminChanged,
	EventSnapshotImported,
}

// Event is published after a mutation commits
type Event struct {
	Type     EventType `json:"type"`
	EntityID string    `json:"entity_id,omitempty"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// Listener handles one event. Errors are logged by the bus.
type Listener func(ctx context.Context, event Event) error

// EventBus dispatches events to listeners on their own goroutines
type EventBus struct {
	listeners map[EventType][]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewEventBus creates an empty bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		listeners: make(map[EventType][]Listener),
		logger:    logger,
		timeout:   time.Minute,
	}
}

// Subscribe registers a listener for one event type
func (b *EventBus) Subscribe(eventType EventType, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], listener)
}

// SubscribeAll registers a listener for every event type
func (b *EventBus) SubscribeAll(listener Listener) {
	for _, t := range AllEventTypes {
		b.Subscribe(t, listener)
	}
}

// Publish fans the event out without waiting for listeners
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	listeners := b.listeners[event.Type]
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
			defer cancel()

			if err := l(ctx, event); err != nil {
				b.logger.Error("Event listener failed",
					zap.String("event", string(event.Type)),
					zap.String("entity_id", event.EntityID),
					zap.Error(err),
				)
			}
		}(listener)
	}
}

// Wait blocks until every dispatched listener returned
func (b *EventBus) Wait() {
	b.wg.Wait()
}
