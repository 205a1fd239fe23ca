package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventMonthLoaded    = "calendar_month_loaded"
	EventMonthRefreshed = "calendar_month_refreshed"
	EventProfileUpdated = "profile_updated"
)

// MonthEventPayload describes a calendar month snapshot for event consumers.
type MonthEventPayload struct {
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	Bookings        int       `json:"bookings"`
	Occurrences     int       `json:"occurrences"`
	TruncatedSeries []string  `json:"truncated_series,omitempty"`
	Source          string    `json:"source,omitempty"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// ProfileEventPayload identifies an updated user profile.
type ProfileEventPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
