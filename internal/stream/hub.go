package stream

import (
	"sync"
	"time"
)

// Event is a single message fanned out to subscribers.
type Event struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Hub is an in-process broadcast channel for homepage live updates. Every
// subscriber owns a buffered channel; slow subscribers drop events instead of
// blocking publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	now    func() time.Time
}

// NewHub constructs a hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: buffer,
		now:    time.Now,
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the consumer goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans an event out to every live subscriber.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := Event{Topic: topic, Payload: payload, At: h.now()}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
