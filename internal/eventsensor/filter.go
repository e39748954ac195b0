package eventsensor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParseField coerces numeric-looking text to int or float, like press codes of remotes.
// Anything else is returned unchanged.
func ParseField(raw any) any {
	switch value := raw.(type) {
	case string:
		trimmed := strings.TrimSpace(value)

		if intValue, err := strconv.Atoi(trimmed); err == nil {
			return intValue
		}

		if floatValue, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return floatValue
		}

		return value

	case int8:
		return int(value)
	case int16:
		return int(value)
	case int32:
		return int(value)
	case int64:
		return int(value)
	case uint8:
		return int(value)
	case uint16:
		return int(value)
	case uint32:
		return int(value)
	case float32:
		return float64(value)

	default:
		return raw
	}
}

// FormatValue formats a value as the host shows it. Floats never use the
// exponent form, 1000000.0 is written as 1000000.
func FormatValue(value any) string {
	switch number := value.(type) {
	case float64:
		return strconv.FormatFloat(number, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(number), 'f', -1, 32)
	default:
		return fmt.Sprint(value)
	}
}

// parseFilter coerces the values of an event data filter. Keys stay text as
// event data keys are always strings on the wire.
func parseFilter(rawFilter map[string]any) map[string]any {
	filter := make(map[string]any, len(rawFilter))
	for key, value := range rawFilter {
		filter[key] = ParseField(value)
	}

	return filter
}

// parseStateMap coerces keys and values of a state map.
func parseStateMap(rawStateMap map[string]any) map[any]any {
	stateMap := make(map[any]any, len(rawStateMap))

	for rawKey, rawValue := range rawStateMap {
		if key, ok := lookupKey(ParseField(rawKey)); ok {
			stateMap[key] = ParseField(rawValue)
		}
	}

	return stateMap
}

// Matches reports whether every key/value of the filter is present and equal in the event data.
func Matches(filter map[string]any, data map[string]any) bool {
	for key, want := range filter {
		got, ok := data[key]
		if !ok || !equalValues(want, got) {
			return false
		}
	}

	return true
}

// Remap returns the mapped value if the value is a key of the state map, the value itself otherwise.
func Remap(stateMap map[any]any, value any) any {
	key, ok := lookupKey(value)
	if !ok {
		return value
	}

	if mapped, ok := stateMap[key]; ok {
		return mapped
	}

	return value
}

// lookupKey returns the state map key for a value. Numbers are keyed by
// their float value so 1002 and 1002.0 hit the same entry.
func lookupKey(value any) (any, bool) {
	if number, ok := toFloat(value); ok {
		return number, true
	}

	switch value.(type) {
	case string, bool:
		return value, true
	default:
		return nil, false
	}
}

// equalValues compares numbers by value and everything else deeply.
func equalValues(a, b any) bool {
	numberA, aIsNumber := toFloat(a)
	numberB, bIsNumber := toFloat(b)

	if aIsNumber || bIsNumber {
		return aIsNumber && bIsNumber && numberA == numberB
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	switch number := value.(type) {
	case int:
		return float64(number), true
	case int8:
		return float64(number), true
	case int16:
		return float64(number), true
	case int32:
		return float64(number), true
	case int64:
		return float64(number), true
	case uint:
		return float64(number), true
	case uint8:
		return float64(number), true
	case uint16:
		return float64(number), true
	case uint32:
		return float64(number), true
	case uint64:
		return float64(number), true
	case float32:
		return float64(number), true
	case float64:
		return number, true
	default:
		return 0, false
	}
}
