package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/benleb/eventsensor-go/internal/eventsensor"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultDiscoveryPrefix is the discovery prefix the host listens on by default.
const DefaultDiscoveryPrefix = "homeassistant"

// discoveryConfig is the payload announcing a sensor to the host.
type discoveryConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	ObjectID            string `json:"object_id"`
	StateTopic          string `json:"state_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
	Icon                string `json:"icon,omitempty"`
}

// Writer publishes sensor states via mqtt discovery.
type Writer struct {
	client Client
	prefix string

	// unique ids with published discovery config
	announced mapset.Set[string]
	mu        sync.Mutex

	pr *log.Logger
}

func New(client Client, discoveryPrefix string) *Writer {
	if discoveryPrefix == "" {
		discoveryPrefix = DefaultDiscoveryPrefix
	}

	return &Writer{
		client:    client,
		prefix:    discoveryPrefix,
		announced: mapset.NewSet[string](),
		pr:        models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.MQTTPurple).Render("mqtt")),
	}
}

func (w *Writer) topic(uniqueID string, suffix string) string {
	return fmt.Sprintf("%s/sensor/%s/%s", w.prefix, uniqueID, suffix)
}

// WriteState announces the sensor once, then publishes its state and attributes.
func (w *Writer) WriteState(ctx context.Context, snapshot eventsensor.Snapshot) error {
	if err := w.announce(ctx, snapshot); err != nil {
		return err
	}

	if err := w.publish(ctx, w.topic(snapshot.UniqueID, "state"), false, []byte(snapshot.StateString())); err != nil {
		return err
	}

	attributes, err := json.Marshal(snapshot.Attributes)
	if err != nil {
		return fmt.Errorf("encoding attributes failed: %w", err)
	}

	return w.publish(ctx, w.topic(snapshot.UniqueID, "attributes"), false, attributes)
}

func (w *Writer) announce(ctx context.Context, snapshot eventsensor.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.announced.Contains(snapshot.UniqueID) {
		return nil
	}

	payload, err := json.Marshal(discoveryConfig{
		Name:                snapshot.Name,
		UniqueID:            snapshot.UniqueID,
		ObjectID:            snapshot.EntityID.EntityName(),
		StateTopic:          w.topic(snapshot.UniqueID, "state"),
		JSONAttributesTopic: w.topic(snapshot.UniqueID, "attributes"),
		Icon:                snapshot.Icon,
	})
	if err != nil {
		return err
	}

	if err := w.publish(ctx, w.topic(snapshot.UniqueID, "config"), true, payload); err != nil {
		return err
	}

	w.announced.Add(snapshot.UniqueID)

	w.pr.Infof("announced %s as %s", style.Bold(snapshot.Name), snapshot.EntityID.FmtString())

	return nil
}

func (w *Writer) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := w.client.Publish(topic, 1, retained, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publishing to %s: %w", topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s failed: %w", topic, err)
	}

	w.pr.Debugf("published to %s: %s", topic, payload)

	return nil
}
