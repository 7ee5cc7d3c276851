package stream

import (
	"testing"
	"time"
)

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	hub.Publish("order_paid", map[string]any{"orderId": "o1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Topic != "order_paid" {
				t.Fatalf("unexpected topic %q", ev.Topic)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub(4)
	ch, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}
	cancel()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.Subscribers())
	}
	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed")
	}
	// Publishing after cancel must not panic or block.
	hub.Publish("order_paid", nil)
	cancel()
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish("order_paid", 1)
	hub.Publish("order_paid", 2)

	ev := <-ch
	if ev.Payload != 1 {
		t.Fatalf("expected first event kept, got %v", ev.Payload)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected overflow to be dropped, got %v", extra.Payload)
	default:
	}
}
