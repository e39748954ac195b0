package homeassistant

import (
	"time"
)

var (
	EventStateChanged         = EventType("state_changed")
	EventHomeAssistantStart   = EventType("homeassistant_start")
	EventHomeAssistantStarted = EventType("homeassistant_started")
)

type EventType string

func (t EventType) String() string { return string(t) }

// Event is an event fired on the host event bus.
type Event struct {
	Type      EventType      `json:"event_type" mapstructure:"event_type"`
	Origin    string         `json:"origin"     mapstructure:"origin"`
	TimeFired time.Time      `json:"time_fired" mapstructure:"time_fired"`
	Context   StateContext   `json:"context"    mapstructure:"context"`
	Data      map[string]any `json:"data"       mapstructure:"data"`
}

type State struct {
	EntityID    EntityID       `json:"entity_id"    mapstructure:"entity_id"`
	State       string         `json:"state"        mapstructure:"state"`
	LastChanged time.Time      `json:"last_changed" mapstructure:"last_changed"`
	LastUpdated time.Time      `json:"last_updated" mapstructure:"last_updated"`
	Context     StateContext   `json:"context"      mapstructure:"context"`
	Attributes  map[string]any `json:"attributes"   mapstructure:"attributes"`
}

// FriendlyName returns the friendly_name attribute of the state.
func (s *State) FriendlyName() string {
	if s == nil {
		return ""
	}

	name, _ := s.Attributes["friendly_name"].(string)

	return name
}

type StateContext struct {
	ID       string `json:"id"        mapstructure:"id"`
	ParentID string `json:"parent_id" mapstructure:"parent_id"`
	UserID   string `json:"user_id"   mapstructure:"user_id"`
}
