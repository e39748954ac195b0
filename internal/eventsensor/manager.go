package eventsensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// SourceUser marks entries from the `sensors` list.
	SourceUser = "user"

	// SourceImport marks entries imported from the deprecated `sensor` platform list.
	SourceImport = "import"
)

// Entry is a config entry, one per event sensor.
type Entry struct {
	ID       string
	Title    string
	UniqueID string
	Source   string

	Data    Config
	Options Config
}

// Manager sets up, updates and unloads the sensors of config entries.
type Manager struct {
	bus      EventBus
	writer   StateWriter
	restorer StateRestorer

	mu      sync.Mutex
	entries map[string]*Entry
	sensors map[string]*Sensor

	// unique ids of loaded entries
	uniqueIDs mapset.Set[string]

	// entity ids in use and the entity id registered per unique id
	entityIDs mapset.Set[homeassistant.EntityID]
	registry  map[string]homeassistant.EntityID

	pr *log.Logger
}

func NewManager(bus EventBus, writer StateWriter, restorer StateRestorer) *Manager {
	return &Manager{
		bus:      bus,
		writer:   writer,
		restorer: restorer,

		entries: make(map[string]*Entry),
		sensors: make(map[string]*Sensor),

		uniqueIDs: mapset.NewThreadUnsafeSet[string](),
		entityIDs: mapset.NewThreadUnsafeSet[homeassistant.EntityID](),
		registry:  make(map[string]homeassistant.EntityID),

		pr: models.Printer.WithPrefix(style.Bold(models.PlatformName)),
	}
}

// Setup creates the sensor of the entry and starts it.
func (m *Manager) Setup(ctx context.Context, entry Entry) (*Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.setup(ctx, entry)
}

func (m *Manager) setup(ctx context.Context, entry Entry) (*Sensor, error) {
	if err := entry.Data.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Data.Name, err)
	}

	entry.UniqueID = MakeUniqueID(entry.Data)

	if entry.ID == "" {
		entry.ID = entry.UniqueID
	}

	if entry.Title == "" {
		entry.Title = entry.Data.Name
	}

	if _, ok := m.entries[entry.ID]; ok || m.uniqueIDs.Contains(entry.UniqueID) {
		return nil, fmt.Errorf("%w: %s (%s)", models.ErrAlreadyConfigured, entry.Title, entry.UniqueID)
	}

	entityID := m.entityID(entry.UniqueID, entry.Data.Name)

	sensor := NewSensor(entry.Data, entityID, m.bus, m.writer, m.restorer)

	if err := sensor.AddedToHass(ctx); err != nil {
		return nil, fmt.Errorf("setting up %s failed: %w", entry.Title, err)
	}

	m.entries[entry.ID] = &entry
	m.sensors[entry.ID] = sensor
	m.uniqueIDs.Add(entry.UniqueID)
	m.entityIDs.Add(entityID)
	m.registry[entry.UniqueID] = entityID

	m.pr.Infof("%s %s set up %s %s", icons.Rocket, style.Bold(entry.Title), style.DarkIndicatorRight, entityID.FmtString())

	return sensor, nil
}

// entityID returns the entity id registered for the unique id or derives a free one from the name.
func (m *Manager) entityID(uniqueID string, name string) homeassistant.EntityID {
	if entityID, ok := m.registry[uniqueID]; ok && !m.entityIDs.Contains(entityID) {
		return entityID
	}

	for suffix := 1; ; suffix++ {
		entityID := homeassistant.SensorEntityID(name, suffix)

		if m.entityIDs.Contains(entityID) || m.registeredByOther(entityID, uniqueID) {
			continue
		}

		return entityID
	}
}

func (m *Manager) registeredByOther(entityID homeassistant.EntityID, uniqueID string) bool {
	for registeredUniqueID, registeredEntityID := range m.registry {
		if registeredEntityID == entityID && registeredUniqueID != uniqueID {
			return true
		}
	}

	return false
}

// Unload stops the sensor of the entry and forgets the entry.
func (m *Manager) Unload(entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.unload(entryID)
}

func (m *Manager) unload(entryID string) error {
	entry, ok := m.entries[entryID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownEntry, entryID)
	}

	sensor := m.sensors[entryID]
	sensor.WillRemoveFromHass()

	m.uniqueIDs.Remove(entry.UniqueID)
	m.entityIDs.Remove(sensor.EntityID())

	delete(m.entries, entryID)
	delete(m.sensors, entryID)

	m.pr.Infof("%s %s unloaded", icons.Broom, style.Bold(entry.Title))

	return nil
}

// UnloadAll unloads every entry.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for entryID := range m.entries {
		_ = m.unload(entryID)
	}
}

// Update applies new options to the entry. If they differ from the entry data,
// the options become the new data and the entry is reloaded.
func (m *Manager) Update(ctx context.Context, entryID string, options Config) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.update(ctx, entryID, options)
}

func (m *Manager) update(ctx context.Context, entryID string, options Config) (bool, error) {
	entry, ok := m.entries[entryID]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrUnknownEntry, entryID)
	}

	if options.IsZero() || options.Equal(entry.Data) {
		return false, nil
	}

	if err := options.Validate(); err != nil {
		return false, fmt.Errorf("%s: %w", options.Name, err)
	}

	updated := *entry
	updated.Data = options
	updated.Options = options
	updated.Title = options.Name
	updated.UniqueID = MakeUniqueID(options)

	if updated.UniqueID != entry.UniqueID && m.uniqueIDs.Contains(updated.UniqueID) {
		return false, fmt.Errorf("%w: %s (%s)", models.ErrAlreadyConfigured, updated.Title, updated.UniqueID)
	}

	m.pr.Infof("%s %s changed, reloading", icons.ReconnectCircle, style.Bold(entry.Title))

	if err := m.unload(entryID); err != nil {
		return false, err
	}

	if _, err := m.setup(ctx, updated); err != nil {
		// bring back the previous sensor
		if _, restoreErr := m.setup(ctx, *entry); restoreErr != nil {
			return false, errors.Join(err, restoreErr)
		}

		return false, err
	}

	return true, nil
}

// Sync reconciles the loaded entries with the given ones. New entries are set up,
// missing ones unloaded and changed ones updated.
func (m *Manager) Sync(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make([]error, 0)

	// first entry wins, later ones with the same id are rejected
	wanted := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = MakeUniqueID(entry.Data)
		}

		if first, ok := wanted[entry.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: %s (%s) duplicates %s", models.ErrAlreadyConfigured, entry.Data.Name, entry.ID, first.Data.Name))

			continue
		}

		wanted[entry.ID] = entry
	}

	// unload first to release unique ids & entity ids
	for entryID := range m.entries {
		if _, ok := wanted[entryID]; !ok {
			if err := m.unload(entryID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, entryID := range sortedKeys(wanted) {
		entry := wanted[entryID]

		if _, ok := m.entries[entryID]; ok {
			if _, err := m.update(ctx, entryID, entry.Data); err != nil {
				errs = append(errs, err)
			}

			continue
		}

		if _, err := m.setup(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Entry returns a copy of the entry.
func (m *Manager) Entry(entryID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[entryID]
	if !ok {
		return Entry{}, false
	}

	return *entry, true
}

// Sensor returns the sensor of the entry.
func (m *Manager) Sensor(entryID string) (*Sensor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sensor, ok := m.sensors[entryID]

	return sensor, ok
}

// Sensors returns all loaded sensors sorted by entity id.
func (m *Manager) Sensors() []*Sensor {
	m.mu.Lock()
	defer m.mu.Unlock()

	sensors := make([]*Sensor, 0, len(m.sensors))
	for _, sensor := range m.sensors {
		sensors = append(sensors, sensor)
	}

	sort.Slice(sensors, func(i, j int) bool {
		return sensors[i].EntityID().ID < sensors[j].EntityID().ID
	})

	return sensors
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// rawEntry is a single item of the `sensors` list.
type rawEntry struct {
	ID     string `mapstructure:"id"`
	Config `mapstructure:",squash"`
}

// rawPlatformEntry is a single item of the deprecated `sensor` platform list.
type rawPlatformEntry struct {
	Platform string `mapstructure:"platform"`
	Config   `mapstructure:",squash"`
}

// sensorsFile holds the sensor lists of the config file.
type sensorsFile struct {
	Sensors []any `yaml:"sensors"`
	Sensor  []any `yaml:"sensor"`
}

// ReadEntries reads the sensor lists of the yaml config file. Keys keep their
// case, event data keys & state values are case-sensitive.
func ReadEntries(path string) ([]Entry, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file failed: %w", err)
	}

	var file sensorsFile

	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decoding %s failed: %w", models.ErrInvalidConfig, path, err)
	}

	return ParseEntries(file.Sensors, file.Sensor)
}

// ParseEntries decodes the `sensors` list and imports the event sensors of the
// deprecated `sensor` platform list. Invalid entries are skipped and reported in the returned error.
func ParseEntries(rawSensors any, rawPlatform any) ([]Entry, error) {
	entries := make([]Entry, 0)
	errs := make([]error, 0)

	for idx, rawSensor := range toList(rawSensors) {
		var raw rawEntry

		if err := decodeEntry(rawSensor, &raw); err != nil {
			errs = append(errs, fmt.Errorf("sensors[%d]: %w", idx, err))

			continue
		}

		if err := raw.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sensors[%d] %s: %w", idx, raw.Name, err))

			continue
		}

		entries = append(entries, newEntry(raw.ID, raw.Config, SourceUser))
	}

	for idx, rawSensor := range toList(rawPlatform) {
		var raw rawPlatformEntry

		if err := decodeEntry(rawSensor, &raw); err != nil {
			errs = append(errs, fmt.Errorf("sensor[%d]: %w", idx, err))

			continue
		}

		if raw.Platform != models.PlatformName {
			continue
		}

		if err := raw.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sensor[%d] %s: %w", idx, raw.Name, err))

			continue
		}

		log.Warnf("%s configuring %s via the '%s' platform list is deprecated, move it to 'sensors'",
			icons.Hae, style.Bold(raw.Name), models.PlatformName)

		entries = append(entries, newEntry("", raw.Config, SourceImport))
	}

	return entries, errors.Join(errs...)
}

func newEntry(entryID string, cfg Config, source string) Entry {
	uniqueID := MakeUniqueID(cfg)

	if entryID == "" {
		entryID = uniqueID
	}

	return Entry{
		ID:       entryID,
		Title:    cfg.Name,
		UniqueID: uniqueID,
		Source:   source,
		Data:     cfg,
	}
}

func toList(raw any) []any {
	switch list := raw.(type) {
	case []any:
		return list
	case []map[string]any:
		items := make([]any, 0, len(list))
		for _, item := range list {
			items = append(items, item)
		}

		return items
	default:
		return nil
	}
}

func decodeEntry(input any, result any) error {
	var metadata mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringKeysHookFunc(),
		),
		ErrorUnused: false,
		Metadata:    &metadata,
		Result:      result,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %w", models.ErrInvalidConfig, err)
	}

	if len(metadata.Unused) > 0 {
		log.With("unused", metadata.Unused).Infof("❔ unused config entries")
	}

	return nil
}
