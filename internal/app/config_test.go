package app

import (
	"errors"
	"testing"
	"time"

	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupViper(t *testing.T, settings map[string]any) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()

	for key, value := range settings {
		viper.Set(key, value)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setupViper(t, map[string]any{
		"homeassistant.url":   "http://homeassistant.local:8123",
		"homeassistant.token": "s3cr3t",
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, OutputREST, cfg.Output)
	assert.Equal(t, 13*time.Minute+37*time.Second, cfg.StatsInterval)
	assert.Equal(t, 15*time.Minute, cfg.DumpInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
	assert.Equal(t, "eventsensor_states.json", cfg.RestorePath)
	assert.Equal(t, "homeassistant", cfg.MQTT.DiscoveryPrefix)
	assert.Equal(t, "eventsensor", cfg.MQTT.ClientID)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  error
	}{
		{
			name:     "no url",
			settings: map[string]any{"homeassistant.token": "s3cr3t"},
			wantErr:  models.ErrEmptyURL,
		},
		{
			name:     "no token",
			settings: map[string]any{"homeassistant.url": "http://ha:8123"},
			wantErr:  models.ErrEmptyToken,
		},
		{
			name:     "unknown output",
			settings: map[string]any{"homeassistant.url": "http://ha:8123", "homeassistant.token": "s3cr3t", "eventsensor.output": "carrier pigeon"},
			wantErr:  models.ErrUnsupportedOutput,
		},
		{
			name:     "mqtt without broker",
			settings: map[string]any{"homeassistant.url": "http://ha:8123", "homeassistant.token": "s3cr3t", "eventsensor.output": "mqtt"},
			wantErr:  models.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupViper(t, tt.settings)

			_, err := LoadConfig()
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadConfig_MQTT(t *testing.T) {
	setupViper(t, map[string]any{
		"homeassistant.url":     "http://ha:8123",
		"homeassistant.token":   "s3cr3t",
		"eventsensor.output":    "mqtt",
		"mqtt.broker":           "tcp://broker:1883",
		"mqtt.discovery_prefix": "ha",
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "ha", cfg.MQTT.DiscoveryPrefix)
}
