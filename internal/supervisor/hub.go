package supervisor

import (
	"sync"
)

// Event is what subscribers of a Hub receive. Exactly one of Failure and
// Transition is set.
type Event struct {
	Type       string      `json:"type"` // "failure" or "transition"
	Failure    *Failure    `json:"failure,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
}

// Hub broadcasts reports to subscribers and remembers the last failure.
// Slow subscribers lose events rather than stall the service.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	last   *Failure
	buffer int
}

// NewHub returns a Hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

// Subscribe returns a channel of events and a function that ends the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// LastFailure returns the most recent failure, if any.
func (h *Hub) LastFailure() (Failure, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Failure{}, false
	}
	return *h.last, true
}

func (h *Hub) Report(f Failure) {
	h.mu.Lock()
	h.last = &f
	h.mu.Unlock()
	h.publish(Event{Type: "failure", Failure: &f})
}

func (h *Hub) Transition(t Transition) {
	h.publish(Event{Type: "transition", Transition: &t})
}

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// subscriber full, drop
		}
	}
}
