package restore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/homeassistant"
	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/models/domain"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/log"
)

// DefaultMaxAge is the time after which states of entities not seen anymore are dropped.
const DefaultMaxAge = 7 * 24 * time.Hour

// storedState is a state as written to disk.
type storedState struct {
	State    homeassistant.State `json:"state"`
	LastSeen time.Time           `json:"last_seen"`
}

// Store keeps the last state of the sensors across restarts.
type Store struct {
	path string

	mu     sync.RWMutex
	states map[homeassistant.EntityID]*storedState
	dirty  bool

	now func() time.Time
	pr  *log.Logger
}

func New(path string) *Store {
	return &Store{
		path:   path,
		states: make(map[homeassistant.EntityID]*storedState),
		now:    time.Now,
		pr:     models.Printer.WithPrefix(style.Bold("restore")),
	}
}

// Path returns the path of the state file.
func (s *Store) Path() string { return s.path }

// Load reads the state file. A missing file is not an error, states of non-sensor entities are skipped.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.pr.Debugf("no state file at %s", s.path)

		return nil
	} else if err != nil {
		return fmt.Errorf("reading state file failed: %w", err)
	}

	var stored []*storedState

	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decoding state file %s failed: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, state := range stored {
		if state == nil || state.State.EntityID.Domain() != domain.Sensor {
			continue
		}

		s.states[state.State.EntityID] = state
	}

	s.pr.Infof("%s loaded %s states from %s", icons.Restore, style.Bold(fmt.Sprint(len(s.states))), s.path)

	return nil
}

// LastState returns the stored state of the entity.
func (s *Store) LastState(entityID homeassistant.EntityID) (*homeassistant.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.states[entityID]
	if !ok {
		return nil, false
	}

	state := stored.State

	return &state, true
}

// WriteState records the snapshot, it is written to disk with the next Dump.
func (s *Store) WriteState(_ context.Context, snapshot eventsensor.Snapshot) error {
	if snapshot.EntityID.ID == "" {
		return models.EmptyEntityIDErr()
	}

	if snapshot.EntityID.Domain() != domain.Sensor {
		return models.InvalidEntityIDErr(snapshot.EntityID.ID)
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	lastChanged := now
	if stored, ok := s.states[snapshot.EntityID]; ok && stored.State.State == snapshot.StateString() {
		lastChanged = stored.State.LastChanged
	}

	s.states[snapshot.EntityID] = &storedState{
		State: homeassistant.State{
			EntityID:    snapshot.EntityID,
			State:       snapshot.StateString(),
			LastChanged: lastChanged,
			LastUpdated: now,
			Attributes:  snapshot.Attributes,
		},
		LastSeen: now,
	}

	s.dirty = true

	return nil
}

// Touch marks the entities as seen.
func (s *Store) Touch(entityIDs ...homeassistant.EntityID) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entityID := range entityIDs {
		if stored, ok := s.states[entityID]; ok {
			stored.LastSeen = now
			s.dirty = true
		}
	}
}

// Expire drops the states of entities not seen for maxAge and returns the number of dropped states.
func (s *Store) Expire(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	deadline := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0

	for entityID, stored := range s.states {
		if stored.LastSeen.Before(deadline) {
			delete(s.states, entityID)

			expired++
		}
	}

	if expired > 0 {
		s.dirty = true
	}

	return expired
}

// Dump writes the states to the state file, replacing it atomically.
func (s *Store) Dump() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	stored := make([]*storedState, 0, len(s.states))
	for _, state := range s.states {
		stored = append(stored, state)
	}

	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding states failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("creating state directory failed: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary state file failed: %w", err)
	}

	defer os.Remove(tmpFile.Name()) //nolint:errcheck

	if _, err := tmpFile.Write(raw); err != nil {
		tmpFile.Close()

		return fmt.Errorf("writing state file failed: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("writing state file failed: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replacing state file failed: %w", err)
	}

	s.dirty = false

	s.pr.Debugf("%s dumped %d states to %s", icons.Save, len(stored), s.path)

	return nil
}
