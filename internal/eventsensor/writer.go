package eventsensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/benleb/eventsensor-go/internal/homeassistant"
)

// Writers writes a snapshot to every writer.
type Writers []StateWriter

func (w Writers) WriteState(ctx context.Context, snapshot Snapshot) error {
	errs := make([]error, 0)

	for _, writer := range w {
		if writer == nil {
			continue
		}

		if err := writer.WriteState(ctx, snapshot); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Restorers returns the state of the first restorer knowing the entity.
type Restorers []StateRestorer

func (r Restorers) LastState(entityID homeassistant.EntityID) (*homeassistant.State, bool) {
	for _, restorer := range r {
		if restorer == nil {
			continue
		}

		if state, ok := restorer.LastState(entityID); ok && state != nil {
			return state, true
		}
	}

	return nil, false
}

// StateSetter sets the state of an entity on the host.
type StateSetter interface {
	SetState(ctx context.Context, entityID homeassistant.EntityID, state string, attributes map[string]any) error
}

// RESTWriter writes the sensor state via the states api of the host.
type RESTWriter struct {
	setter StateSetter
}

func NewRESTWriter(setter StateSetter) *RESTWriter {
	return &RESTWriter{setter: setter}
}

func (w *RESTWriter) WriteState(ctx context.Context, snapshot Snapshot) error {
	attributes := copyAttributes(snapshot.Attributes)

	attributes["friendly_name"] = snapshot.Name
	attributes["icon"] = snapshot.Icon

	if err := w.setter.SetState(ctx, snapshot.EntityID, snapshot.StateString(), attributes); err != nil {
		return fmt.Errorf("setting state of %s failed: %w", snapshot.EntityID.FmtString(), err)
	}

	return nil
}
