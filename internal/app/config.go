package app

import (
	"fmt"
	"time"

	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/mqtt"
	"github.com/benleb/eventsensor-go/internal/restore"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/viper"
)

const (
	OutputREST = "rest"
	OutputMQTT = "mqtt"
)

var outputs = mapset.NewSet(OutputREST, OutputMQTT)

// Config is the service configuration, the sensors are read separately.
type Config struct {
	// Home Assistant connection
	URL   string
	Token string

	// Output selects how sensor states are written to Home Assistant
	Output string

	// StatsInterval is the interval in which the stats line is printed
	StatsInterval time.Duration

	// restore state
	RestorePath  string
	DumpInterval time.Duration
	MaxAge       time.Duration

	MQTT MQTTConfig
}

type MQTTConfig struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	DiscoveryPrefix string
}

// SetDefaults registers the default settings.
func SetDefaults() {
	viper.SetDefault("eventsensor.output", OutputREST)
	viper.SetDefault("eventsensor.stats_interval", "13m37s")

	viper.SetDefault("homeassistant.watchdog.check_every", 7*time.Second)
	viper.SetDefault("homeassistant.watchdog.max_age", 37*time.Second)

	viper.SetDefault("restore.path", "eventsensor_states.json")
	viper.SetDefault("restore.dump_interval", 15*time.Minute)
	viper.SetDefault("restore.max_age", restore.DefaultMaxAge)

	viper.SetDefault("mqtt.client_id", models.PlatformName)
	viper.SetDefault("mqtt.discovery_prefix", mqtt.DefaultDiscoveryPrefix)
}

// LoadConfig reads the service configuration.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		URL:   viper.GetString("homeassistant.url"),
		Token: viper.GetString("homeassistant.token"),

		Output:        viper.GetString("eventsensor.output"),
		StatsInterval: viper.GetDuration("eventsensor.stats_interval"),

		RestorePath:  viper.GetString("restore.path"),
		DumpInterval: viper.GetDuration("restore.dump_interval"),
		MaxAge:       viper.GetDuration("restore.max_age"),

		MQTT: MQTTConfig{
			Broker:          viper.GetString("mqtt.broker"),
			ClientID:        viper.GetString("mqtt.client_id"),
			Username:        viper.GetString("mqtt.username"),
			Password:        viper.GetString("mqtt.password"),
			DiscoveryPrefix: viper.GetString("mqtt.discovery_prefix"),
		},
	}

	switch {
	case cfg.URL == "":
		return nil, models.ErrEmptyURL

	case cfg.Token == "":
		return nil, models.ErrEmptyToken

	case !outputs.Contains(cfg.Output):
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedOutput, cfg.Output)

	case cfg.Output == OutputMQTT && cfg.MQTT.Broker == "":
		return nil, models.InvalidConfigErr("mqtt.broker is required for the mqtt output")
	}

	return cfg, nil
}
