package eventsensor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kr/pretty"
)

// writeTimeout limits a single state write.
var writeTimeout = 10 * time.Second

// unknownStates are restored as no state.
var unknownStates = mapset.NewSet("unknown", "unavailable")

// EventBus delivers host events to listeners.
type EventBus interface {
	// Listen registers the listener for the event type and returns a function removing it again.
	Listen(eventType homeassistant.EventType, listener homeassistant.Listener) (func(), error)
}

// StateWriter publishes the state of a sensor to the host.
type StateWriter interface {
	WriteState(ctx context.Context, snapshot Snapshot) error
}

// StateRestorer returns the last known state of an entity.
type StateRestorer interface {
	LastState(entityID homeassistant.EntityID) (*homeassistant.State, bool)
}

// Snapshot is the state of a sensor at one point in time.
type Snapshot struct {
	EntityID   homeassistant.EntityID
	UniqueID   string
	Name       string
	Icon       string
	State      any
	Attributes map[string]any
}

// StateString returns the state as the host shows it.
func (s Snapshot) StateString() string {
	if s.State == nil {
		return "unknown"
	}

	return FormatValue(s.State)
}

// Sensor mirrors the most recent matching event into its state and attributes.
type Sensor struct {
	cfg Config

	// coerced event data filter & state map
	eventData map[string]any
	stateMap  map[any]any

	uniqueID string
	entityID homeassistant.EntityID

	bus      EventBus
	writer   StateWriter
	restorer StateRestorer

	mu             sync.Mutex
	state          any
	attributes     map[string]any
	removeListener func()

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	// counter
	eventsReceivedTotal atomic.Uint64
	eventsAcceptedTotal atomic.Uint64

	color lipgloss.Color
	style lipgloss.Style
	pr    *log.Logger
}

// NewSensor creates a sensor for the given (validated) config. Writer and restorer are optional.
func NewSensor(cfg Config, entityID homeassistant.EntityID, bus EventBus, writer StateWriter, restorer StateRestorer) *Sensor {
	color := GenerateColorFromString(cfg.Name)
	sensorStyle := lipgloss.NewStyle().Foreground(color)

	return &Sensor{
		cfg:       cfg,
		eventData: parseFilter(cfg.EventData),
		stateMap:  parseStateMap(cfg.StateMap),

		uniqueID: MakeUniqueID(cfg),
		entityID: entityID,

		bus:      bus,
		writer:   writer,
		restorer: restorer,

		attributes: make(map[string]any),

		color: color,
		style: sensorStyle,
		pr:    models.Printer.WithPrefix(sensorStyle.Render(cfg.Name)),
	}
}

func (s *Sensor) String() string { return s.cfg.Name }

// Name returns the name of the entity.
func (s *Sensor) Name() string { return s.cfg.Name }

// UniqueID returns the unique id, made with the event type, state key and data filters.
func (s *Sensor) UniqueID() string { return s.uniqueID }

// EntityID returns the entity id of the sensor.
func (s *Sensor) EntityID() homeassistant.EntityID { return s.entityID }

// Icon returns the icon of the entity.
func (s *Sensor) Icon() string { return models.SensorIcon }

// Config returns the config the sensor was created with.
func (s *Sensor) Config() Config { return s.cfg }

// State returns the state of the entity.
func (s *Sensor) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Attributes returns a copy of the state attributes.
func (s *Sensor) Attributes() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyAttributes(s.attributes)
}

// Snapshot returns the current state of the sensor.
func (s *Sensor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		EntityID:   s.entityID,
		UniqueID:   s.uniqueID,
		Name:       s.cfg.Name,
		Icon:       models.SensorIcon,
		State:      s.state,
		Attributes: copyAttributes(s.attributes),
	}
}

// EventsReceived returns the number of received and accepted events.
func (s *Sensor) EventsReceived() (uint64, uint64) {
	return s.eventsReceivedTotal.Load(), s.eventsAcceptedTotal.Load()
}

// AddedToHass restores the last known state and starts listening for events.
func (s *Sensor) AddedToHass(ctx context.Context) error {
	s.mu.Lock()

	// recover last state
	if s.restorer != nil {
		if lastState, ok := s.restorer.LastState(s.entityID); ok && lastState != nil {
			if !unknownStates.Contains(lastState.State) {
				s.state = lastState.State
			}

			s.attributes = copyAttributes(lastState.Attributes)

			s.pr.Infof("%s restored state %s of %s", icons.Restore, style.Bold(lastState.State), lastState.FriendlyName())
		}
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	sensorCtx := s.ctx
	s.mu.Unlock()

	// listen for event
	removeListener, err := s.bus.Listen(homeassistant.EventType(s.cfg.Event), s.handleEvent)
	if err != nil {
		s.cancel()

		return fmt.Errorf("listening to %s failed: %w", s.cfg.Event, err)
	}

	s.mu.Lock()
	s.removeListener = removeListener
	s.mu.Unlock()

	s.pr.Debugf("%s: added sensor listening to '%s' with unique_id: %s", s.entityID, s.cfg.Event, s.uniqueID)

	// announce the sensor with its restored (or unknown) state
	s.writeState(sensorCtx)

	return nil
}

// WillRemoveFromHass stops listening for events.
func (s *Sensor) WillRemoveFromHass() {
	s.mu.Lock()
	removeListener := s.removeListener
	s.removeListener = nil

	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if removeListener != nil {
		removeListener()
	}

	s.pr.Debugf("%s: removing event listener", s.entityID)
}

// handleEvent updates the state when a matching event is received.
func (s *Sensor) handleEvent(event *homeassistant.Event) {
	s.eventsReceivedTotal.Add(1)

	if !Matches(s.eventData, event.Data) {
		s.pr.Debugf("%s ignoring %s | data: %s", icons.Blind, style.Bold(string(event.Type)), style.KeyValues(event.Data))

		return
	}

	rawState, ok := event.Data[s.cfg.State]
	if !ok {
		s.pr.Warnf("%s %s: %s", icons.Hae, fmt.Errorf("%w: %s", models.ErrMissingStateKey, s.cfg.State), style.KeyValues(event.Data))

		return
	}

	newState := Remap(s.stateMap, rawState)

	attributes := make(map[string]any, len(event.Data)+2)
	for key, value := range event.Data {
		attributes[key] = value
	}

	attributes["origin"] = event.Origin
	attributes["time_fired"] = event.TimeFired

	s.mu.Lock()
	s.state = newState
	s.attributes = attributes
	ctx := s.ctx
	s.mu.Unlock()

	s.eventsAcceptedTotal.Add(1)

	s.pr.Debugf("%s: new state: %v", s.entityID, newState)
	s.pr.Debugf("%+v", pretty.Sprint(event))

	s.writeState(ctx)
}

func (s *Sensor) writeState(ctx context.Context) {
	if s.writer == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	snapshot := s.Snapshot()

	if err := s.writer.WriteState(ctx, snapshot); err != nil {
		s.pr.Errorf("%s writing state %s failed: %+v", icons.RedCross, style.Bold(snapshot.StateString()), err)

		return
	}

	s.pr.Infof("%s %s %s", icons.Event, style.DarkIndicatorRight, style.Bold(snapshot.StateString()))
}

func copyAttributes(attributes map[string]any) map[string]any {
	copied := make(map[string]any, len(attributes))
	for key, value := range attributes {
		copied[key] = value
	}

	return copied
}
