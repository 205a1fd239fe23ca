package events

import (
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventMonthLoaded, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventMonthLoaded, MonthEventPayload{Year: 2024, Month: 3, Occurrences: 7})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != EventMonthLoaded {
		t.Errorf("expected type %s, got %s", EventMonthLoaded, received.Type)
	}

	var decoded MonthEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded.Year != 2024 || decoded.Month != 3 || decoded.Occurrences != 7 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventMonthRefreshed, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventMonthRefreshed, func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: EventMonthRefreshed})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventProfileUpdated, ProfileEventPayload{UserID: "u1"}); err != nil {
		t.Errorf("expected nil bus to be a no-op, got %v", err)
	}
}
