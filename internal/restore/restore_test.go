package restore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(name string, state any) eventsensor.Snapshot {
	return eventsensor.Snapshot{
		EntityID:   homeassistant.SensorEntityID(name, 1),
		Name:       name,
		State:      state,
		Attributes: map[string]any{"event": 1002, "origin": "LOCAL"},
	}
}

func TestStore_DumpAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "states.json")

	store := New(path)
	require.NoError(t, store.WriteState(context.Background(), snapshot("Hue Remote", "single press")))
	require.NoError(t, store.WriteState(context.Background(), snapshot("Doorbell", nil)))
	require.NoError(t, store.Dump())

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded := New(path)
	require.NoError(t, loaded.Load())

	state, ok := loaded.LastState(homeassistant.SensorEntityID("Hue Remote", 1))
	require.True(t, ok)
	assert.Equal(t, "single press", state.State)
	assert.Equal(t, "sensor.hue_remote", state.EntityID.ID)
	assert.Equal(t, 1002.0, state.Attributes["event"])

	state, ok = loaded.LastState(homeassistant.SensorEntityID("Doorbell", 1))
	require.True(t, ok)
	assert.Equal(t, "unknown", state.State)

	_, ok = loaded.LastState(homeassistant.SensorEntityID("Unknown", 1))
	assert.False(t, ok)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "missing.json"))

	require.NoError(t, store.Load())

	_, ok := store.LastState(homeassistant.SensorEntityID("Hue Remote", 1))
	assert.False(t, ok)
}

func TestStore_LoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	assert.Error(t, New(path).Load())
}

func TestStore_WriteStateRequiresSensorEntityID(t *testing.T) {
	tests := []struct {
		name     string
		entityID homeassistant.EntityID
		wantErr  error
	}{
		{name: "empty", entityID: homeassistant.EntityID{}, wantErr: models.ErrEmptyEntityID},
		{name: "light", entityID: homeassistant.EntityID{ID: "light.kitchen"}, wantErr: models.ErrInvalidEntityID},
		{name: "no domain", entityID: homeassistant.EntityID{ID: "kitchen"}, wantErr: models.ErrInvalidEntityID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(filepath.Join(t.TempDir(), "states.json"))

			err := store.WriteState(context.Background(), eventsensor.Snapshot{EntityID: tt.entityID, State: "on"})
			require.ErrorIs(t, err, tt.wantErr)

			_, ok := store.LastState(tt.entityID)
			assert.False(t, ok)
		})
	}
}

func TestStore_LoadSkipsOtherDomains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"state": {"entity_id": "sensor.doorbell", "state": "pressed"}, "last_seen": "2026-10-18T12:00:00Z"},
  {"state": {"entity_id": "light.kitchen", "state": "on"}, "last_seen": "2026-10-18T12:00:00Z"}
]`), 0o600))

	store := New(path)
	require.NoError(t, store.Load())

	state, ok := store.LastState(homeassistant.EntityID{ID: "sensor.doorbell"})
	require.True(t, ok)
	assert.Equal(t, "pressed", state.State)

	_, ok = store.LastState(homeassistant.EntityID{ID: "light.kitchen"})
	assert.False(t, ok)
}

func TestStore_Expire(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := New(filepath.Join(t.TempDir(), "states.json"))
	store.now = func() time.Time { return now }

	require.NoError(t, store.WriteState(context.Background(), snapshot("Old Remote", "on")))
	require.NoError(t, store.WriteState(context.Background(), snapshot("Hue Remote", "on")))

	now = now.Add(8 * 24 * time.Hour)
	store.Touch(homeassistant.SensorEntityID("Hue Remote", 1))

	assert.Equal(t, 1, store.Expire(DefaultMaxAge))
	assert.Equal(t, 0, store.Expire(0))

	_, ok := store.LastState(homeassistant.SensorEntityID("Old Remote", 1))
	assert.False(t, ok)

	_, ok = store.LastState(homeassistant.SensorEntityID("Hue Remote", 1))
	assert.True(t, ok)
}

func TestStore_LastChanged(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	changed := now

	store := New(filepath.Join(t.TempDir(), "states.json"))
	store.now = func() time.Time { return now }

	require.NoError(t, store.WriteState(context.Background(), snapshot("Hue Remote", "on")))

	now = now.Add(time.Minute)
	require.NoError(t, store.WriteState(context.Background(), snapshot("Hue Remote", "on")))

	state, ok := store.LastState(homeassistant.SensorEntityID("Hue Remote", 1))
	require.True(t, ok)
	assert.Equal(t, changed, state.LastChanged)
	assert.Equal(t, now, state.LastUpdated)

	now = now.Add(time.Minute)
	require.NoError(t, store.WriteState(context.Background(), snapshot("Hue Remote", "off")))

	state, _ = store.LastState(homeassistant.SensorEntityID("Hue Remote", 1))
	assert.Equal(t, now, state.LastChanged)
}
