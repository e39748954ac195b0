package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	setupViper(t, map[string]any{
		"homeassistant.url":   "http://homeassistant.local:8123",
		"homeassistant.token": "s3cr3t",
		"restore.path":        filepath.Join(t.TempDir(), "states.json"),
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	app, err := New(cfg)
	require.NoError(t, err)

	// not connected, states are only recorded locally
	app.manager = eventsensor.NewManager(app.ha, app.store, eventsensor.Restorers{app.store, app.ha})

	return app
}

// writeSensors writes a config file with the given sensors and points viper at it.
func writeSensors(t *testing.T, sensors string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "eventsensor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sensors), 0o600))

	viper.SetConfigFile(path)
}

func TestApp_Reload(t *testing.T) {
	app := newTestApp(t)

	writeSensors(t, `
sensors:
  - name: Hue Remote
    event: hue_event
    state: event
    event_data:
      id: hue_remote
  - name: Doorbell
    event: doorbell_pressed
    state: button
sensor:
  - platform: eventsensor
    name: Legacy
    event: zha_event
    state: command
`)

	app.reload(context.Background())
	assert.Len(t, app.manager.Sensors(), 3)

	writeSensors(t, `
sensors:
  - name: Doorbell
    event: doorbell_pressed
    state: button
  - name: Broken
`)

	app.reload(context.Background())

	sensors := app.manager.Sensors()
	require.Len(t, sensors, 1)
	assert.Equal(t, "sensor.doorbell", sensors[0].EntityID().ID)
}

func TestApp_ReloadKeepsKeyCase(t *testing.T) {
	app := newTestApp(t)

	writeSensors(t, `
sensors:
  - name: Kitchen Switch
    event: deconz_event
    state: Action
    event_data:
      Device: Kitchen
    state_map:
      Single: pressed
`)

	app.reload(context.Background())

	sensors := app.manager.Sensors()
	require.Len(t, sensors, 1)

	cfg := sensors[0].Config()
	assert.Equal(t, "Action", cfg.State)
	assert.Equal(t, map[string]any{"Device": "Kitchen"}, cfg.EventData)
	assert.Equal(t, map[string]any{"Single": "pressed"}, cfg.StateMap)
	assert.Equal(t, "deconz_event_action_device_kitchen", sensors[0].UniqueID())
}

func TestApp_DumpStates(t *testing.T) {
	app := newTestApp(t)

	writeSensors(t, `
sensors:
  - name: Doorbell
    event: doorbell_pressed
    state: button
`)

	app.reload(context.Background())

	sensors := app.manager.Sensors()
	require.Len(t, sensors, 1)

	require.NoError(t, app.store.WriteState(context.Background(), sensors[0].Snapshot()))

	app.dumpStates()

	_, err := os.Stat(app.RestorePath)
	require.NoError(t, err)
}

func TestApp_OutputWriter(t *testing.T) {
	app := newTestApp(t)

	writer, err := app.outputWriter()
	require.NoError(t, err)
	assert.IsType(t, &eventsensor.RESTWriter{}, writer)

	app.Output = "carrier pigeon"

	_, err = app.outputWriter()
	assert.Error(t, err)
}

func TestApp_FmtStats(t *testing.T) {
	app := newTestApp(t)

	writeSensors(t, `
sensors:
  - name: Doorbell
    event: doorbell_pressed
    state: button
`)

	app.reload(context.Background())

	stats := app.fmtStats(42, app.manager.Sensors())
	assert.Contains(t, stats, "42")
	assert.Contains(t, stats, "doorbell")
}
