package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/mqtt"
	"github.com/benleb/eventsensor-go/internal/restore"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron"
	"github.com/spf13/viper"
)

// App runs the event sensors of the config file against Home Assistant.
type App struct {
	*Config

	// Pr is the (pretty) printer of the app.
	Pr *log.Logger

	ha      *homeassistant.HomeAssistant
	store   *restore.Store
	manager *eventsensor.Manager

	mqttClient paho.Client

	// restore dumps & stats line
	scheduler *gocron.Scheduler

	// serializes config reloads
	reloadMu sync.Mutex

	style lipgloss.Style
}

func New(cfg *Config) (*App, error) {
	ha, err := homeassistant.New(cfg.URL, cfg.Token)
	if err != nil {
		return nil, err
	}

	appStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0099"))

	return &App{
		Config: cfg,
		Pr:     models.Printer.WithPrefix(appStyle.Faint(true).Render(models.AppName)),

		ha:    ha,
		store: restore.New(cfg.RestorePath),

		scheduler: gocron.NewScheduler(time.UTC),

		style: appStyle,
	}, nil
}

// Run connects to Home Assistant, sets up the sensors and blocks until the context is done.
func (app *App) Run(ctx context.Context) error {
	if err := app.store.Load(); err != nil {
		app.Pr.Errorf("%s %v | starting without restored states", icons.RedCross, err)
	}

	if err := app.ha.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to Home Assistant failed: %w", err)
	}

	app.Pr.Infof("%s Home Assistant session created", icons.GreenTick)

	output, err := app.outputWriter()
	if err != nil {
		app.ha.Close()

		return err
	}

	// states are recorded locally & written to Home Assistant,
	// restored from the local store first, Home Assistant second
	app.manager = eventsensor.NewManager(
		app.ha,
		eventsensor.Writers{app.store, output},
		eventsensor.Restorers{app.store, app.ha},
	)

	app.reload(ctx)

	if err := app.schedule(); err != nil {
		app.shutdown()

		return err
	}

	app.scheduler.StartAsync()

	// re-sync sensors on config changes
	viper.OnConfigChange(func(event fsnotify.Event) {
		if ctx.Err() != nil || (!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create)) {
			return
		}

		app.Pr.Infof("%s config file %s changed, syncing sensors", icons.ReconnectCircle, style.Bold(event.Name))

		app.reload(ctx)
	})
	viper.WatchConfig()

	app.printIntro()

	<-ctx.Done()

	app.shutdown()

	return nil
}

// outputWriter creates the writer for the configured output.
func (app *App) outputWriter() (eventsensor.StateWriter, error) { //nolint:ireturn
	switch app.Output {
	case OutputMQTT:
		client, err := mqtt.Connect(app.MQTT.Broker, app.MQTT.ClientID, app.MQTT.Username, app.MQTT.Password)
		if err != nil {
			return nil, fmt.Errorf("connecting to mqtt broker %s failed: %w", app.MQTT.Broker, err)
		}

		app.mqttClient = client

		return mqtt.New(client, app.MQTT.DiscoveryPrefix), nil

	case OutputREST:
		return eventsensor.NewRESTWriter(app.ha), nil

	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedOutput, app.Output)
	}
}

// reload parses the sensors of the config and syncs them with the running ones.
func (app *App) reload(ctx context.Context) {
	app.reloadMu.Lock()
	defer app.reloadMu.Unlock()

	entries, err := eventsensor.ReadEntries(viper.ConfigFileUsed())
	if err != nil {
		app.Pr.Errorf("%s invalid sensors skipped: %v", icons.RedCross, err)
	}

	if len(entries) == 0 {
		app.Pr.Warnf("%s no sensors configured", icons.Shrug)
	}

	if err := app.manager.Sync(ctx, entries); err != nil {
		app.Pr.Errorf("%s setting up sensors failed: %v", icons.RedCross, err)
	}

	for _, sensor := range app.manager.Sensors() {
		fmt.Println(eventsensor.FormatConfig(sensor.EntityID(), sensor.UniqueID(), sensor.Config()))
	}

	fmt.Println()
}

// schedule registers the restore state dumps & the stats line.
func (app *App) schedule() error {
	if app.DumpInterval > 0 {
		if _, err := app.scheduler.Every(app.DumpInterval).WaitForSchedule().Tag("restore").Do(app.dumpStates); err != nil {
			return fmt.Errorf("scheduling state dumps failed: %w", err)
		}
	}

	if app.StatsInterval > 0 {
		if _, err := app.scheduler.Every(app.StatsInterval).WaitForSchedule().Tag("stats").Do(app.printStats); err != nil {
			return fmt.Errorf("scheduling stats failed: %w", err)
		}
	}

	return nil
}

// dumpStates writes the states of the running sensors to disk.
func (app *App) dumpStates() {
	entityIDs := make([]homeassistant.EntityID, 0)
	for _, sensor := range app.manager.Sensors() {
		entityIDs = append(entityIDs, sensor.EntityID())
	}

	app.store.Touch(entityIDs...)

	if expired := app.store.Expire(app.MaxAge); expired > 0 {
		app.Pr.Infof("%s dropped %d expired states", icons.Broom, expired)
	}

	if err := app.store.Dump(); err != nil {
		app.Pr.Errorf("%s dumping states failed: %v", icons.RedCross, err)

		return
	}

	app.Pr.Debugf("%s states saved to %s", icons.Save, app.store.Path())
}

func (app *App) shutdown() {
	app.Pr.Infof("%s shutting down", icons.Door)

	app.scheduler.Stop()

	// last dump before the sensors are gone
	app.dumpStates()

	app.manager.UnloadAll()

	app.ha.Close()

	if app.mqttClient != nil {
		app.mqttClient.Disconnect(250)
	}
}

func (app *App) printIntro() {
	intro := strings.Builder{}
	intro.WriteString(icons.Bullseye + " ")
	intro.WriteString(style.Bold(strconv.Itoa(len(app.manager.Sensors()))))
	intro.WriteString(" sensors | ")
	intro.WriteString(icons.Sub + " ")
	intro.WriteString(style.Bold(strconv.Itoa(len(app.ha.Subscriptions()))))
	intro.WriteString(" event types | ")
	intro.WriteString(icons.Mail + " ")
	intro.WriteString(style.Bold(app.Output))
	intro.WriteString(" ")
	intro.WriteString(style.DarkDivider.String() + style.DarkDivider.String() + " ")
	intro.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#CC99CC")).Render(time.Now().Format("15:04:05")))
	intro.WriteString(" 🕰️")
	intro.WriteString("\n")
	app.Pr.Print(intro.String())
}
