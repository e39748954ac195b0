package homeassistant

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Listener is called for every event of the type it was registered for.
type Listener func(event *Event)

// bus keeps the local listeners per event type. The websocket subscription
// for an event type lives as long as it has at least one listener.
type bus struct {
	mu sync.RWMutex

	nextID    uint64
	listeners map[EventType]map[uint64]Listener
}

func newBus() *bus {
	return &bus{listeners: make(map[EventType]map[uint64]Listener)}
}

// add registers the listener and reports whether it is the first one for the event type.
func (b *bus) add(eventType EventType, listener Listener) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++

	listeners, ok := b.listeners[eventType]
	if !ok {
		listeners = make(map[uint64]Listener)
		b.listeners[eventType] = listeners
	}

	listeners[b.nextID] = listener

	return b.nextID, len(listeners) == 1
}

// remove drops the listener and reports whether it was the last one for the event type.
func (b *bus) remove(eventType EventType, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	listeners, ok := b.listeners[eventType]
	if !ok {
		return false
	}

	if _, ok := listeners[id]; !ok {
		return false
	}

	delete(listeners, id)

	if len(listeners) == 0 {
		delete(b.listeners, eventType)

		return true
	}

	return false
}

// eventTypes returns all event types with at least one listener.
func (b *bus) eventTypes() mapset.Set[EventType] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	eventTypes := mapset.NewThreadUnsafeSet[EventType]()
	for eventType := range b.listeners {
		eventTypes.Add(eventType)
	}

	return eventTypes
}

// dispatch calls all listeners of the event's type and returns how many were called.
func (b *bus) dispatch(event *Event) int {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners[event.Type]))

	for _, listener := range b.listeners[event.Type] {
		listeners = append(listeners, listener)
	}
	b.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}

	return len(listeners)
}
