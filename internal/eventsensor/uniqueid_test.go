package eventsensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeUniqueID(t *testing.T) {
	assert.Equal(t, "hue_event_event", MakeUniqueID(Config{Name: "Remote", Event: "hue_event", State: "event"}))

	a := MakeUniqueID(Config{Event: "hue_event", State: "event", EventData: map[string]any{"id": "hue_remote", "type": "press"}})
	b := MakeUniqueID(Config{Event: "hue_event", State: "event", EventData: map[string]any{"type": "press", "id": "hue_remote"}})
	assert.Equal(t, a, b, "key order must not matter")

	c := MakeUniqueID(Config{Event: "hue_event", State: "event", EventData: map[string]any{"id": "other_remote", "type": "press"}})
	assert.NotEqual(t, a, c)

	// the name is not part of the unique id
	assert.Equal(t,
		MakeUniqueID(Config{Name: "One", Event: "hue_event", State: "event"}),
		MakeUniqueID(Config{Name: "Two", Event: "hue_event", State: "event"}),
	)

	// large numbers are not written in exponent form
	assert.Equal(t, "deconz_event_event_id_1000000",
		MakeUniqueID(Config{Event: "deconz_event", State: "event", EventData: map[string]any{"id": 1000000.0}}),
	)

	// numeric text and numbers are the same filter
	assert.Equal(t,
		MakeUniqueID(Config{Event: "deconz_event", State: "event", EventData: map[string]any{"event": "1002"}}),
		MakeUniqueID(Config{Event: "deconz_event", State: "event", EventData: map[string]any{"event": 1002}}),
	)
}
