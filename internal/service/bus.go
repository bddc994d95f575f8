package service

import "sync"

// Action names a layer store mutation.
type Action string

const (
	ActionCreated   Action = "created"
	ActionRemoved   Action = "removed"
	ActionReordered Action = "reordered"
	ActionStyled    Action = "styled"
	ActionFocused   Action = "focused"
)

// Event is one layer store mutation. ID is empty for store-wide changes
// such as a reorder or clearing the focus.
type Event struct {
	Action Action `json:"action"`
	ID     string `json:"id,omitempty"`
}

// subscriberBuffer bounds the events queued for one subscriber.
const subscriberBuffer = 16

// EventBus fans store events out to viewer streams. Each subscriber
// re-renders from the current state when it reads an event, so an event
// that does not fit a full buffer is skipped rather than blocking the store.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber with room for it. It has the
// signature LayerService.Subscribe expects.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func removes it and
// closes the channel; calling it again is a no-op.
func (b *EventBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of attached subscribers.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
