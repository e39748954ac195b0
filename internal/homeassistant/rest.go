package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
)

type setStateRequest struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SetState creates or updates the state of an entity via the REST API.
func (ha *HomeAssistant) SetState(ctx context.Context, entityID EntityID, state string, attributes map[string]any) error {
	payload, err := json.Marshal(setStateRequest{State: state, Attributes: attributes})
	if err != nil {
		return fmt.Errorf("unable to encode state: %w", err)
	}

	endpoint := ha.httpURL.JoinPath("/api/states", entityID.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ha.token)

	resp, err := ha.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to make request: %w", err)
	}
	defer resp.Body.Close()

	// drain the body to reuse the connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: %d", models.ErrUnexpectedStatus, resp.StatusCode)
	}

	now := time.Now()

	ha.updateStates([]*State{{
		EntityID:    entityID,
		State:       state,
		Attributes:  attributes,
		LastChanged: now,
		LastUpdated: now,
	}})

	ha.pr.Debugf("%s %s %s %s", icons.Mail, entityID.FmtString(), style.DarkIndicatorLeft, style.Bold(state))

	return nil
}
