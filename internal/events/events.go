// Package events is the in-process pub/sub channel between the
// reservation workflows and whatever wants to hear about them.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event carries a typed payload plus the moment it was raised.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler consumes one event.
type Handler func(event Event) error

// Bus fans events out to the handlers subscribed to their type.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe adds a handler for one event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish delivers the event, synchronously, to every handler of its
// type. Handler errors are the handler's problem; publishing never
// fails.
func (b *Bus) Publish(event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON encodes payload and publishes it under eventType.
func (b *Bus) PublishJSON(eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}
