package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// fakeHomeAssistant is a minimal websocket + REST api server for tests.
type fakeHomeAssistant struct {
	t      *testing.T
	token  string
	states []map[string]any

	server *httptest.Server

	mu            sync.Mutex
	conn          *websocket.Conn
	subscriptions map[string]int64
	subscribed    []string
	unsubscribed  []int64
	setStates     map[string]setStateRequest
}

func newFakeHomeAssistant(t *testing.T, token string) *fakeHomeAssistant {
	t.Helper()

	fake := &fakeHomeAssistant{
		t:     t,
		token: token,
		states: []map[string]any{
			{
				"entity_id":    "sensor.hue_remote",
				"state":        "on",
				"last_changed": "2024-05-01T12:00:00.123456+00:00",
				"last_updated": "2024-05-01T12:00:00.123456+00:00",
				"attributes":   map[string]any{"friendly_name": "Hue Remote", "id": "remote_1"},
				"context":      map[string]any{"id": "01HX", "parent_id": nil, "user_id": nil},
			},
		},
		subscriptions: make(map[string]int64),
		setStates:     make(map[string]setStateRequest),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/websocket", fake.handleWebsocket)
	mux.HandleFunc("/api/states/", fake.handleSetState)

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeHomeAssistant) URL() string { return f.server.URL }

func (f *fakeHomeAssistant) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.t.Errorf("accept failed: %v", err)

		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "auth_required", "ha_version": "2024.5.0"}); err != nil {
		return
	}

	var auth map[string]any
	if err := wsjson.Read(ctx, conn, &auth); err != nil {
		return
	}

	if auth["access_token"] != f.token {
		_ = wsjson.Write(ctx, conn, map[string]any{"type": "auth_invalid", "message": "Invalid access token or password"})

		return
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "auth_ok", "ha_version": "2024.5.0"}); err != nil {
		return
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	for {
		var msg map[string]any
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}

		msgID := int64(msg["id"].(float64))

		var reply map[string]any

		switch msg["type"] {
		case "get_states":
			reply = map[string]any{"id": msgID, "type": "result", "success": true, "result": f.states}

		case "subscribe_events":
			f.mu.Lock()
			eventType, _ := msg["event_type"].(string)
			f.subscriptions[eventType] = msgID
			f.subscribed = append(f.subscribed, eventType)
			f.mu.Unlock()

			reply = map[string]any{"id": msgID, "type": "result", "success": true, "result": nil}

		case "unsubscribe_events":
			subscriptionID := int64(msg["subscription"].(float64))

			f.mu.Lock()
			f.unsubscribed = append(f.unsubscribed, subscriptionID)
			for eventType, id := range f.subscriptions {
				if id == subscriptionID {
					delete(f.subscriptions, eventType)
				}
			}
			f.mu.Unlock()

			reply = map[string]any{"id": msgID, "type": "result", "success": true, "result": nil}

		case "ping":
			reply = map[string]any{"id": msgID, "type": "pong"}

		default:
			reply = map[string]any{
				"id": msgID, "type": "result", "success": false,
				"error": map[string]any{"code": "unknown_command", "message": "Unknown command."},
			}
		}

		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return
		}
	}
}

func (f *fakeHomeAssistant) handleSetState(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	f.mu.Lock()
	f.setStates[r.URL.Path] = req
	f.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{}`))
}

// fire sends an event to the subscription of the event type.
func (f *fakeHomeAssistant) fire(eventType string, data map[string]any) {
	f.t.Helper()

	f.mu.Lock()
	conn := f.conn
	subscriptionID, ok := f.subscriptions[eventType]
	f.mu.Unlock()

	if !ok || conn == nil {
		f.t.Fatalf("no subscription for %s", eventType)
	}

	msg := map[string]any{
		"id":   subscriptionID,
		"type": "event",
		"event": map[string]any{
			"event_type": eventType,
			"data":       data,
			"origin":     "LOCAL",
			"time_fired": "2024-05-01T12:34:56.789012+00:00",
			"context":    map[string]any{"id": "01HY", "parent_id": nil, "user_id": nil},
		},
	}

	if err := wsjson.Write(context.Background(), conn, msg); err != nil {
		f.t.Fatalf("firing event failed: %v", err)
	}
}

func (f *fakeHomeAssistant) activeSubscriptions() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	active := make(map[string]int64, len(f.subscriptions))
	for eventType, id := range f.subscriptions {
		active[eventType] = id
	}

	return active
}

func (f *fakeHomeAssistant) unsubscribedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int64(nil), f.unsubscribed...)
}

func (f *fakeHomeAssistant) setState(path string) (setStateRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.setStates[path]

	return req, ok
}
