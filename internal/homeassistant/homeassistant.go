package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/viper"
)

var (
	connectionTimeout = time.Second * 5
	requestTimeout    = time.Second * 10
	reconnectDelay    = 7 * time.Second
	readLimit         = int64(1024000) // 1024kb
)

type HomeAssistant struct {
	wsURL   *url.URL
	httpURL *url.URL
	token   string

	httpClient *http.Client

	// holds the states of all entities as fetched on connect (and written by us)
	states   map[EntityID]*State
	statesMu sync.RWMutex

	// local listeners per event type
	bus *bus

	// active subscriptions: event type → id of the subscribe message
	activeSubscriptions map[EventType]int64
	subscriptionsMu     sync.Mutex

	// time the most recent message was received (unix nano)
	lastMessageReceived atomic.Int64

	// watchdog settings, disabled if checkEvery is zero
	watchdogMaxAge     time.Duration
	watchdogCheckEvery time.Duration

	// result handlers for sent messages/requests
	resultsHandler map[int64]chan ResultMsg
	resultsMu      sync.Mutex

	nonce atomic.Int64

	// printer
	pr *log.Logger

	// websocket connection
	conn   *websocket.Conn
	connMu sync.RWMutex
	// lock for writing to the websocket
	wsMutex sync.Mutex

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	reconnecting atomic.Bool

	// counter
	eventsReceivedTotal atomic.Uint64

	// time of start
	startTime time.Time
}

// New creates a new HomeAssistant client. Call Connect to open the websocket session.
func New(rawURL string, token string) (*HomeAssistant, error) {
	// validity check
	if rawURL == "" {
		return nil, models.ErrEmptyURL
	} else if token == "" {
		return nil, models.ErrEmptyToken
	}

	// parse http(s) URL
	httpURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	// create websocket URL
	wsURL := *httpURL

	switch httpURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported url scheme: %s", httpURL.Scheme)
	}

	homAss := &HomeAssistant{
		wsURL:   wsURL.JoinPath("/api/websocket"),
		httpURL: httpURL,
		token:   token,

		httpClient: &http.Client{Timeout: requestTimeout},

		states: make(map[EntityID]*State),
		bus:    newBus(),

		activeSubscriptions: make(map[EventType]int64),
		resultsHandler:      make(map[int64]chan ResultMsg),

		watchdogMaxAge:     viper.GetDuration("homeassistant.watchdog.max_age"),
		watchdogCheckEvery: viper.GetDuration("homeassistant.watchdog.check_every"),

		pr: models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.HABlue).Render("HA")),

		startTime: time.Now(),
	}

	homAss.lastMessageReceived.Store(time.Now().UnixNano())

	return homAss, nil
}

// Connect opens the websocket session, authenticates and subscribes to all
// event types that have listeners. The session is kept alive (and re-established)
// until ctx is done or Close is called.
func (ha *HomeAssistant) Connect(ctx context.Context) error {
	ha.ctx, ha.cancel = context.WithCancel(ctx)

	if err := ha.connect(); err != nil {
		ha.cancel()

		return err
	}

	if ha.watchdogCheckEvery > 0 && ha.watchdogMaxAge > 0 {
		go ha.lastMessageReceivedWatchdog(ha.watchdogMaxAge, ha.watchdogCheckEvery)
	}

	ha.pr.Printf("%s Home Assistant client started", icons.GreenTick)

	return nil
}

// Close shuts down the websocket session.
func (ha *HomeAssistant) Close() {
	if ha.cancel != nil {
		ha.cancel()
	}

	if conn := ha.connection(); conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "shutdown"); err != nil {
			ha.pr.Debugf("%s failed to gracefully close connection: %+v", icons.RedCross.Render(), err)

			_ = conn.CloseNow()
		}
	}
}

func (ha *HomeAssistant) connect() error {
	if err := ha.setupConnection(); err != nil {
		return err
	}

	// start message handler
	go ha.runReader(ha.connection())

	// get initial state
	numStatesReceived, err := ha.getStates()
	if err != nil {
		return fmt.Errorf("failed to get states: %w", err)
	}

	ha.pr.Printf("%s fetched states for %d entities", icons.Home, numStatesReceived)

	// (re)subscribe to all event types with listeners
	for eventType := range ha.bus.eventTypes().Iter() {
		if err := ha.subscribe(eventType); err != nil {
			ha.pr.Warnf("❌ subscription for %+v failed: %s", style.Bold(string(eventType)), err)
		}
	}

	return nil
}

func (ha *HomeAssistant) setupConnection() error {
	// connect to websocket API
	ha.pr.Printf("%s connecting to %s", icons.ConnectionChain, ha.wsURL.String())

	// create context with timeout
	ctx, cancel := context.WithTimeout(ha.ctx, connectionTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, ha.wsURL.String(), &websocket.DialOptions{}) //nolint:bodyclose
	if err != nil {
		return err
	}

	// increase max size of a message for the connection (in bytes)
	conn.SetReadLimit(readLimit)

	ha.pr.Debugf("%s set read limit to %d bytes", icons.Glasses, readLimit)

	// authenticate
	if err := ha.doAuthentication(ctx, conn); err != nil {
		_ = conn.CloseNow()

		return err
	}

	ha.pr.Printf("%s successfully authenticated", icons.Key)

	ha.connMu.Lock()
	ha.conn = conn
	ha.connMu.Unlock()

	ha.lastMessageReceived.Store(time.Now().UnixNano())

	ha.pr.Printf("%s connected to %s", icons.GreenTick, ha.wsURL.String())

	return nil
}

// doAuthentication runs the auth handshake of the websocket API.
func (ha *HomeAssistant) doAuthentication(ctx context.Context, conn *websocket.Conn) error {
	var versionMsg VersionMsg

	// read first message...
	if err := wsjson.Read(ctx, conn, &versionMsg); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	// ...which should be the auth_required message
	if versionMsg.Type != msgTypeAuthRequired {
		return fmt.Errorf("%w: %s", models.ErrUnexpectedMessageType, versionMsg.Type)
	}

	ha.pr.Debugf("%s Home Assistant %s requires authentication", icons.Door, style.Bold(versionMsg.HaVersion))

	// reply with auth message containing a token
	if err := wsjson.Write(ctx, conn, NewAuthMsg(ha.token)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := wsjson.Read(ctx, conn, &versionMsg); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	switch versionMsg.Type {
	case msgTypeAuthOK:
		return nil
	case msgTypeAuthInvalid:
		return fmt.Errorf("%w: %s", models.ErrAuthFailed, versionMsg.Message)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnexpectedMessageType, versionMsg.Type)
	}
}

func (ha *HomeAssistant) connection() *websocket.Conn {
	ha.connMu.RLock()
	defer ha.connMu.RUnlock()

	return ha.conn
}

// shutdown tears down the connection state before reconnecting.
func (ha *HomeAssistant) shutdown() {
	ha.connMu.Lock()
	conn := ha.conn
	ha.conn = nil
	ha.connMu.Unlock()

	if conn != nil {
		ha.pr.Debugf("%s closing existing connection...", icons.RedCross.Render())

		_ = conn.CloseNow()
	}

	// fail all pending requests
	ha.resultsMu.Lock()
	for msgID, done := range ha.resultsHandler {
		close(done)
		delete(ha.resultsHandler, msgID)
	}
	ha.resultsMu.Unlock()

	// subscriptions are bound to the connection
	ha.subscriptionsMu.Lock()
	ha.activeSubscriptions = make(map[EventType]int64)
	ha.subscriptionsMu.Unlock()
}

// reconnect re-establishes the session until it succeeds or the client is closed.
func (ha *HomeAssistant) reconnect() {
	if !ha.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer ha.reconnecting.Store(false)

	ha.pr.Infof("%s reconnect - closing existing connection...", icons.Stopwatch)

	ha.shutdown()

	for {
		ha.pr.Printf("%s trying again in %.0fs...", icons.ReconnectCircle, reconnectDelay.Seconds())

		select {
		case <-ha.ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}

		if err := ha.connect(); err != nil {
			ha.pr.With("err", err).Error("failed to setup connection")

			ha.shutdown()

			continue
		}

		ha.pr.Printf("%s reconnected", icons.ReconnectCircle)

		return
	}
}

// Listen registers a listener for the given event type. The returned function
// removes the listener again; removing the last listener of an event type
// unsubscribes from it.
func (ha *HomeAssistant) Listen(eventType EventType, listener Listener) (func(), error) {
	listenerID, first := ha.bus.add(eventType, listener)

	if first && ha.connection() != nil {
		if err := ha.subscribe(eventType); err != nil {
			ha.bus.remove(eventType, listenerID)

			return nil, err
		}
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			if last := ha.bus.remove(eventType, listenerID); last {
				ha.unsubscribe(eventType)
			}
		})
	}, nil
}

func (ha *HomeAssistant) subscribe(eventType EventType) error {
	ha.subscriptionsMu.Lock()
	defer ha.subscriptionsMu.Unlock()

	if _, ok := ha.activeSubscriptions[eventType]; ok {
		return nil
	}

	msg := NewSubscribeMsg(eventType)

	if _, err := ha.wsCallWithResponse(ha.ctx, msg); err != nil {
		return err
	}

	ha.activeSubscriptions[eventType] = msg.GetID()

	ha.pr.Infof("%s subscribed to %s", icons.Sub, style.HABlueFrame(string(eventType)))

	return nil
}

func (ha *HomeAssistant) unsubscribe(eventType EventType) {
	ha.subscriptionsMu.Lock()
	defer ha.subscriptionsMu.Unlock()

	subscriptionID, ok := ha.activeSubscriptions[eventType]
	if !ok {
		return
	}

	delete(ha.activeSubscriptions, eventType)

	if _, err := ha.wsCallWithResponse(ha.ctx, NewUnsubscribeMsg(subscriptionID)); err != nil {
		ha.pr.Warnf("❌ unsubscribing from %+v failed: %s", style.Bold(string(eventType)), err)

		return
	}

	ha.pr.Infof("%s unsubscribed from %s", icons.Unsub, style.HABlueFrame(string(eventType)))
}

// Subscriptions returns the event types with an active subscription.
func (ha *HomeAssistant) Subscriptions() []EventType {
	ha.subscriptionsMu.Lock()
	defer ha.subscriptionsMu.Unlock()

	eventTypes := make([]EventType, 0, len(ha.activeSubscriptions))
	for eventType := range ha.activeSubscriptions {
		eventTypes = append(eventTypes, eventType)
	}

	return eventTypes
}

func (ha *HomeAssistant) wsCallWithResponse(ctx context.Context, msg Message) (*ResultMsg, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// send message and wait for result
	msgID, done, err := ha.wsCall(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	timeout := time.NewTimer(requestTimeout)
	defer timeout.Stop()

	select {
	case result, ok := <-done:
		if !ok {
			return nil, models.ErrConnectionClosed
		}

		if !result.Success {
			return &result, fmt.Errorf("%w: %s", models.ErrRequestFailed, result.Error)
		}

		return &result, nil

	case <-ctx.Done():
		ha.dropResultHandler(msgID)

		return nil, ctx.Err()

	case <-timeout.C:
		ha.dropResultHandler(msgID)

		return nil, fmt.Errorf("%w: no response for %s", models.ErrRequestFailed, msg)
	}
}

// wsCall sends a message to the websocket connection and returns the used message id.
func (ha *HomeAssistant) wsCall(msg Message) (int64, chan ResultMsg, error) {
	conn := ha.connection()
	if conn == nil {
		return 0, nil, models.ErrNoConnectionToWriteTo
	}

	// send message with increasing unique message id
	ha.wsMutex.Lock()
	defer ha.wsMutex.Unlock()

	// add unique message id
	msgID := msg.SetID(ha.nonce.Add(1))

	done := make(chan ResultMsg, 1)

	ha.resultsMu.Lock()
	ha.resultsHandler[msgID] = done
	ha.resultsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// send the message
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		ha.dropResultHandler(msgID)

		return 0, nil, err
	}

	ha.pr.Debugf("%s sent %s", icons.Call, msg)

	return msgID, done, nil
}

func (ha *HomeAssistant) dropResultHandler(msgID int64) {
	ha.resultsMu.Lock()
	delete(ha.resultsHandler, msgID)
	ha.resultsMu.Unlock()
}

func (ha *HomeAssistant) getStates() (int, error) {
	result, err := ha.wsCallWithResponse(ha.ctx, NewGetStatesMsg())
	if err != nil {
		return 0, err
	}

	// map result to State structs
	var states []*State
	if err := decode(result.Result, &states); err != nil {
		return 0, fmt.Errorf("decoding get_states result failed: %w", err)
	}

	// update local state
	ha.updateStates(states)

	return len(states), nil
}

// updateStates updates the local state with the given states.
func (ha *HomeAssistant) updateStates(states []*State) {
	ha.statesMu.Lock()
	defer ha.statesMu.Unlock()

	for _, state := range states {
		if state != nil {
			ha.states[state.EntityID] = state
		}
	}
}

// GetState returns the last known host state of the entity.
func (ha *HomeAssistant) GetState(entityID EntityID) *State {
	ha.statesMu.RLock()
	state, ok := ha.states[entityID]
	numStates := len(ha.states)
	ha.statesMu.RUnlock()

	if !ok || state == nil {
		ha.pr.Debugf("no state found for entity %s in %d states", entityID.ID, numStates)

		return nil
	}

	return state
}

// LastState returns the cached host state of the entity, if any.
func (ha *HomeAssistant) LastState(entityID EntityID) (*State, bool) {
	state := ha.GetState(entityID)

	return state, state != nil
}

// EventsReceived returns the number of events received since start.
func (ha *HomeAssistant) EventsReceived() uint64 {
	return ha.eventsReceivedTotal.Load()
}

// Uptime returns the time since the client was created.
func (ha *HomeAssistant) Uptime() time.Duration {
	return time.Since(ha.startTime)
}

func (ha *HomeAssistant) runReader(conn *websocket.Conn) {
	ha.pr.Debugf("%s starting websocket reader", icons.WeightLift)

	err := ha.wsReader(conn)

	if ha.ctx.Err() != nil {
		ha.pr.Debugf("%s reader stopped", icons.Glasses)

		return
	}

	ha.pr.Errorf("%s reader error: %+v", icons.Glasses, err)

	// shutdown & reconnect
	go ha.reconnect()
}

func (ha *HomeAssistant) wsReader(conn *websocket.Conn) error {
	if conn == nil {
		return models.ErrNoConnectionToReadFrom
	}

	for {
		var msg map[string]interface{}

		err := wsjson.Read(ha.ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return models.ErrConnectionClosed
			}

			return err
		}

		ha.lastMessageReceived.Store(time.Now().UnixNano())

		if msg == nil {
			ha.pr.Error("received nil message")

			continue
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			ha.pr.Errorf("received message without type: %+v", msg)

			continue
		}

		switch msgType {
		case msgTypeEvent:
			ha.handleEventMessage(msg)

		case msgTypeResult:
			ha.handleResultMessage(msg)

		case msgTypePong:
			var pong baseMessage
			if err := decode(msg, &pong); err == nil {
				ha.deliverResult(ResultMsg{baseMessage: pong, Success: true})
			}

		default:
			ha.pr.Warnf("❔ received unexpected %s message: %+v", style.Bold(msgType), msg)
		}
	}
}

func (ha *HomeAssistant) handleEventMessage(msg map[string]interface{}) {
	var eventMsg EventMsg

	if err := decode(msg, &eventMsg); err != nil {
		ha.pr.Errorf("decoding incoming event failed: %+v | msg: %+v", err, msg)

		return
	} else if eventMsg.Event == nil {
		ha.pr.Errorf("received event message without event: %+v", msg)

		return
	}

	ha.eventsReceivedTotal.Add(1)

	event := eventMsg.Event

	switch event.Type {
	case EventStateChanged:
		ha.updateStateFromEvent(event)

	case EventHomeAssistantStart, EventHomeAssistantStarted:
		ha.pr.Printf("%s %s received", icons.Rocket, style.Bold(string(event.Type)))

		go func() {
			if _, err := ha.getStates(); err != nil {
				ha.pr.Error("failed to get states: ", err)
			}
		}()
	}

	if numListeners := ha.bus.dispatch(event); numListeners == 0 {
		ha.pr.Debugf("%s received %s event without listeners", icons.Hae, style.Bold(string(event.Type)))
	}
}

// updateStateFromEvent keeps the local states current on state_changed events.
func (ha *HomeAssistant) updateStateFromEvent(event *Event) {
	rawNewState, ok := event.Data["new_state"]
	if !ok || rawNewState == nil {
		if rawEntityID, ok := event.Data["entity_id"].(string); ok {
			ha.statesMu.Lock()
			delete(ha.states, EntityID{ID: rawEntityID})
			ha.statesMu.Unlock()
		}

		return
	}

	var newState State
	if err := decode(rawNewState, &newState); err != nil {
		ha.pr.Debugf("decoding new state failed: %+v", err)

		return
	}

	ha.updateStates([]*State{&newState})
}

func (ha *HomeAssistant) handleResultMessage(msg map[string]interface{}) {
	var resultMsg ResultMsg

	if err := decode(msg, &resultMsg); err != nil {
		ha.pr.Errorf("decoding incoming result failed: %+v | msg: %+v", err, msg)

		return
	}

	if !resultMsg.Success {
		ha.pr.Errorf(style.Gray(6).Render("#")+"%d | %s | %s", resultMsg.ID, resultMsg.Error.Code, resultMsg.Error.Message)
	}

	ha.deliverResult(resultMsg)
}

func (ha *HomeAssistant) deliverResult(resultMsg ResultMsg) {
	ha.resultsMu.Lock()
	done, ok := ha.resultsHandler[resultMsg.ID]
	delete(ha.resultsHandler, resultMsg.ID)
	ha.resultsMu.Unlock()

	if ok {
		done <- resultMsg
	}
}

// lastMessageReceivedWatchdog pings Home Assistant and reconnects if nothing was received for maxAge.
func (ha *HomeAssistant) lastMessageReceivedWatchdog(maxAge, checkEvery time.Duration) {
	ha.pr.Infof("%s starting last message received watchdog | max age: %s | check every: %s", icons.Watchdog, style.Bold(maxAge.String()), style.Bold(checkEvery.String()))

	ticker := time.NewTicker(checkEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ha.ctx.Done():
			return
		case <-ticker.C:
		}

		since := time.Since(time.Unix(0, ha.lastMessageReceived.Load()))
		if since > maxAge {
			ha.pr.Warnf("❌ no message received for %s - reconnecting", style.Bold(since.Round(time.Millisecond).String()))

			// the reader fails on the closed connection and reconnects
			if conn := ha.connection(); conn != nil {
				_ = conn.CloseNow()
			}

			continue
		}

		// custom events can be rare, a pong keeps the session alive
		go func() {
			if _, err := ha.wsCallWithResponse(ha.ctx, NewPingMsg()); err != nil && !errors.Is(err, context.Canceled) {
				ha.pr.Debugf("%s ping failed: %+v", icons.Watchdog, err)
			}
		}()

		ha.pr.Debugf("%s %s last message received %s ago | max age: %s | next check: %s", icons.Watchdog, icons.GreenTick.Render(), style.Bold(since.Round(time.Millisecond).String()), style.Bold(maxAge.String()), style.Bold(checkEvery.String()))
	}
}
