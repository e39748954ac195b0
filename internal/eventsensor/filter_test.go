package eventsensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want any
	}{
		{"int text", "1002", 1002},
		{"negative int text", "-3", -3},
		{"float text", "1.5", 1.5},
		{"plain text", "on", "on"},
		{"int", 1002, 1002},
		{"int64", int64(7), 7},
		{"float", 2.5, 2.5},
		{"float32", float32(0.5), 0.5},
		{"bool", true, true},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseField(tt.raw))
		})
	}
}

func TestMatches(t *testing.T) {
	data := map[string]any{"id": "hue_remote", "event": 1002.0, "unique_id": "00:17"}

	tests := []struct {
		name   string
		filter map[string]any
		want   bool
	}{
		{"empty filter", map[string]any{}, true},
		{"nil filter", nil, true},
		{"subset", map[string]any{"id": "hue_remote"}, true},
		{"numeric by value", map[string]any{"event": 1002}, true},
		{"all keys", map[string]any{"id": "hue_remote", "event": 1002, "unique_id": "00:17"}, true},
		{"different value", map[string]any{"event": 2002}, false},
		{"missing key", map[string]any{"device": "x"}, false},
		{"text is not a number", map[string]any{"event": "1002"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.filter, data))
		})
	}
}

func TestMatches_ParsedFilter(t *testing.T) {
	filter := parseFilter(map[string]any{"event": "1002", "id": "hue_remote"})

	assert.True(t, Matches(filter, map[string]any{"event": 1002, "id": "hue_remote"}))
	assert.False(t, Matches(filter, map[string]any{"event": "1002", "id": "hue_remote"}))
	assert.False(t, Matches(filter, map[string]any{"event": true, "id": "hue_remote"}))
}

func TestRemap(t *testing.T) {
	stateMap := parseStateMap(map[string]any{
		"1002": "single",
		"1004": "double",
		"on":   "1",
	})

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"int key", 1002, "single"},
		{"float key", 1004.0, "double"},
		{"text key with coerced value", "on", 1},
		{"unmapped", 3002, 3002},
		{"unmapped text", "off", "off"},
		{"unhashable", []any{1}, []any{1}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remap(stateMap, tt.value))
		})
	}
}

func TestRemap_EmptyStateMap(t *testing.T) {
	assert.Equal(t, 1002, Remap(nil, 1002))
	assert.Equal(t, "on", Remap(parseStateMap(nil), "on"))
}

func TestMatches_Supersets(t *testing.T) {
	data := map[string]any{"id": "hue_remote", "event": 1002, "type": "initial_press", "unique_id": "00:17:88"}

	keys := []string{"id", "event", "type", "unique_id"}

	// every subset of the event data is a matching filter
	for mask := 0; mask < 1<<len(keys); mask++ {
		filter := make(map[string]any)

		for idx, key := range keys {
			if mask&(1<<idx) != 0 {
				filter[key] = data[key]
			}
		}

		assert.True(t, Matches(parseFilter(filter), data), "filter %v", filter)

		// changing any filter value breaks the match
		for key := range filter {
			changed := make(map[string]any, len(filter))
			for k, v := range filter {
				changed[k] = v
			}

			changed[key] = "something else"

			assert.False(t, Matches(parseFilter(changed), data), "filter %v", changed)
		}
	}
}
