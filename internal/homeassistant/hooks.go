package homeassistant

import (
	"fmt"
	"reflect"
	"time"

	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/mitchellh/mapstructure"
)

func StringToEntityIDHookFunc() mapstructure.DecodeHookFunc { //nolint:ireturn
	return func(f reflect.Type, targetType reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if targetType != reflect.TypeOf(EntityID{}) {
			return data, nil
		}

		if rawEntityID, ok := data.(string); ok {
			entityID, err := NewEntityID(rawEntityID)
			if err != nil {
				return nil, err
			}

			return *entityID, nil
		}

		return nil, models.InvalidEntityIDErr(fmt.Sprint(data))
	}
}

// decode maps a raw websocket message onto the given result struct.
func decode(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(mapstructure.StringToTimeHookFunc(time.RFC3339), StringToEntityIDHookFunc()),
		Result:     result,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
