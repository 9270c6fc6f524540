// internal/eventhub/hub.go
package eventhub

import "sync"

// Event types emitted by the version engine.
const (
	EventVersionsChanged = "version:changed"
	EventBranchesChanged = "branch:changed"
)

// Event is one notification pushed to subscribers.
type Event struct {
	Type    string
	Payload any
}

// Listener receives events. Listeners run synchronously on the emitting
// goroutine and should hand off heavy work themselves.
type Listener func(Event)

// Hub is a simple multi-subscriber event dispatcher.
type Hub struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns a function that removes it.
func (h *Hub) Subscribe(listener Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = listener

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Emit delivers an event to every subscriber.
func (h *Hub) Emit(eventType string, payload any) {
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()

	event := Event{Type: eventType, Payload: payload}
	for _, l := range listeners {
		l(event)
	}
}

// EmitVersionsChanged notifies subscribers that the version list changed.
func (h *Hub) EmitVersionsChanged(payload any) {
	h.Emit(EventVersionsChanged, payload)
}

// EmitBranchesChanged notifies subscribers that the branch list changed.
func (h *Hub) EmitBranchesChanged(payload any) {
	h.Emit(EventBranchesChanged, payload)
}
