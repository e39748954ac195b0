package eventsensor

import (
	"context"
	"sync"
	"time"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
)

type fakeBus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[homeassistant.EventType]map[int]homeassistant.Listener
	removed   int

	// err is returned for failFor, or for every event type if failFor is empty
	err     error
	failFor homeassistant.EventType
}

func newFakeBus() *fakeBus {
	return &fakeBus{listeners: make(map[homeassistant.EventType]map[int]homeassistant.Listener)}
}

func (b *fakeBus) Listen(eventType homeassistant.EventType, listener homeassistant.Listener) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil && (b.failFor == "" || b.failFor == eventType) {
		return nil, b.err
	}

	b.nextID++
	id := b.nextID

	if b.listeners[eventType] == nil {
		b.listeners[eventType] = make(map[int]homeassistant.Listener)
	}

	b.listeners[eventType][id] = listener

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.listeners[eventType], id)
		b.removed++
	}, nil
}

func (b *fakeBus) fire(eventType homeassistant.EventType, data map[string]any) {
	b.mu.Lock()
	listeners := make([]homeassistant.Listener, 0, len(b.listeners[eventType]))
	for _, listener := range b.listeners[eventType] {
		listeners = append(listeners, listener)
	}
	b.mu.Unlock()

	event := &homeassistant.Event{
		Type:      eventType,
		Origin:    "LOCAL",
		TimeFired: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:      data,
	}

	for _, listener := range listeners {
		listener(event)
	}
}

func (b *fakeBus) count(eventType homeassistant.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.listeners[eventType])
}

type fakeWriter struct {
	mu        sync.Mutex
	snapshots []Snapshot
	err       error
}

func (w *fakeWriter) WriteState(_ context.Context, snapshot Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.snapshots = append(w.snapshots, snapshot)

	return w.err
}

func (w *fakeWriter) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.snapshots = nil
}

func (w *fakeWriter) written() []Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]Snapshot(nil), w.snapshots...)
}

type fakeRestorer map[string]*homeassistant.State

func (r fakeRestorer) LastState(entityID homeassistant.EntityID) (*homeassistant.State, bool) {
	state, ok := r[entityID.ID]

	return state, ok
}

type fakeSetter struct {
	entityID   homeassistant.EntityID
	state      string
	attributes map[string]any
	err        error
}

func (s *fakeSetter) SetState(_ context.Context, entityID homeassistant.EntityID, state string, attributes map[string]any) error {
	s.entityID = entityID
	s.state = state
	s.attributes = attributes

	return s.err
}
