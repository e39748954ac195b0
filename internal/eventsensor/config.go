package eventsensor

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/mitchellh/mapstructure"
)

// maxEventTypeLength is the longest event type the host accepts.
const maxEventTypeLength = 64

// Config is the configuration of a single event sensor.
type Config struct {
	// Name is the name of the sensor, the entity id is derived from it
	Name string `json:"name" mapstructure:"name"`

	// Event is the event type to listen for
	Event string `json:"event" mapstructure:"event"`

	// State is the key of the event data holding the new state
	State string `json:"state" mapstructure:"state"`

	// EventData is a filter, all key/values must be present in the event data
	EventData map[string]any `json:"event_data,omitempty" mapstructure:"event_data,omitempty"`

	// StateMap maps raw state values to the state shown for the sensor
	StateMap map[string]any `json:"state_map,omitempty" mapstructure:"state_map,omitempty"`
}

// IsZero reports whether no field is set.
func (c Config) IsZero() bool {
	return c.Name == "" && c.Event == "" && c.State == "" && len(c.EventData) == 0 && len(c.StateMap) == 0
}

// Equal reports whether both configs describe the same sensor.
func (c Config) Equal(other Config) bool {
	return c.Name == other.Name &&
		c.Event == other.Event &&
		c.State == other.State &&
		reflect.DeepEqual(normalizeMap(c.EventData), normalizeMap(other.EventData)) &&
		reflect.DeepEqual(normalizeMap(c.StateMap), normalizeMap(other.StateMap))
}

// Validate checks the config like the host schema does before a sensor is created.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return models.InvalidConfigErr("name is required")

	case strings.TrimSpace(c.Event) == "":
		return models.InvalidConfigErr("event is required")

	case len(c.Event) > maxEventTypeLength:
		return models.InvalidConfigErr(fmt.Sprintf("event must not be longer than %d characters", maxEventTypeLength))

	case strings.TrimSpace(c.State) == "":
		return models.InvalidConfigErr("state is required")
	}

	return nil
}

// normalizeMap treats nil and empty maps the same.
func normalizeMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}

	return m
}

// stringKeysHookFunc converts mappings with non-string keys (like `1002: on` in yaml) to map[string]any.
func stringKeysHookFunc() mapstructure.DecodeHookFunc { //nolint:ireturn
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.Map || t.Kind() != reflect.Map {
			return data, nil
		}

		rawMap, ok := data.(map[any]any)
		if !ok {
			return data, nil
		}

		stringMap := make(map[string]any, len(rawMap))
		for key, value := range rawMap {
			stringMap[fmt.Sprint(key)] = value
		}

		return stringMap, nil
	}
}
