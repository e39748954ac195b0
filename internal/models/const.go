package models

import (
	"os"

	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/charmbracelet/log"
)

const (
	AppName = "EventSensor"
	AppIcon = icons.Bullseye

	// SensorIcon is the material design icon shown for every event sensor.
	SensorIcon = "mdi:bullseye-arrow"

	// PlatformName is the platform key of the deprecated `sensor:` list.
	PlatformName = "eventsensor"
)

// Printer is the global (pretty) printer. It is replaced in the run command
// once the log level is known.
var Printer = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	TimeFormat:      " " + "15:04:05",
	Level:           log.WarnLevel,
})

// build information, set by main.
var (
	AppVersion = "dev"
	Commit     = "none"
	CommitDate = "unknown"
)
