package eventsensor

import (
	"strings"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"golang.org/x/exp/slices"
)

// MakeUniqueID derives the unique id of a sensor from its event type, state key and event data filter.
func MakeUniqueID(cfg Config) string {
	parts := []string{cfg.Event, cfg.State}

	keys := make([]string, 0, len(cfg.EventData))
	for key := range cfg.EventData {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		parts = append(parts, key, FormatValue(ParseField(cfg.EventData[key])))
	}

	return homeassistant.Slugify(strings.Join(parts, " "))
}
