package homeassistant

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/style"
)

const (
	msgTypeAuthRequired = "auth_required"
	msgTypeAuthOK       = "auth_ok"
	msgTypeAuthInvalid  = "auth_invalid"
	msgTypeEvent        = "event"
	msgTypeResult       = "result"
	msgTypePong         = "pong"
)

// Message is the interface for all messages sent to or received from Home Assistant.
type Message interface {
	// SetID sets the message ID and returns it.
	SetID(id int64) int64
	// GetID returns the message ID.
	GetID() int64

	// String returns a string representation of the message.
	String() string
}

// baseMessage is the base struct for all messages sent to or received from Home Assistant.
type baseMessage struct {
	ID   int64  `json:"id,omitempty" mapstructure:"id,omitempty"`
	Type string `json:"type"         mapstructure:"type"`
}

func (m *baseMessage) SetID(id int64) int64 {
	m.ID = id

	return m.ID
}

func (m *baseMessage) GetID() int64 {
	return m.ID
}

func (m *baseMessage) framelessString() string {
	out := strings.Builder{}
	out.WriteString(style.Gray(6).Render("#"))
	out.WriteString(strconv.FormatInt(m.ID, 10))
	out.WriteString(style.ColorizeHABlue("|"))

	return out.String()
}

func (m *baseMessage) framelessStringWithType() string {
	out := strings.Builder{}
	out.WriteString(m.framelessString())
	out.WriteString(style.Gray(8).Render(m.Type))

	return out.String()
}

func (m *baseMessage) String() string {
	return style.HABlueFrame(m.framelessStringWithType())
}

// VersionMsg is sent by Home Assistant during the auth handshake.
type VersionMsg struct {
	baseMessage `mapstructure:",squash"`
	HaVersion   string `json:"ha_version"`
	Message     string `json:"message,omitempty"`
}

type AuthMsg struct {
	baseMessage `mapstructure:",squash"`
	AccessToken string `json:"access_token"`
}

func NewAuthMsg(token string) AuthMsg {
	return AuthMsg{
		baseMessage: baseMessage{Type: "auth"},
		AccessToken: token,
	}
}

func NewGetStatesMsg() *baseMessage {
	return &baseMessage{Type: "get_states"}
}

func NewPingMsg() *baseMessage {
	return &baseMessage{Type: "ping"}
}

type SubscribeMsg struct {
	baseMessage `mapstructure:",squash"`
	EventType   EventType `json:"event_type,omitempty"`
}

func (m *SubscribeMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.baseMessage.framelessStringWithType())
	out.WriteString(style.ColorizeHABlue(" → "))
	out.WriteString(style.Bold(string(m.EventType)))

	return style.HABlueFrame(out.String())
}

func NewSubscribeMsg(eventType EventType) *SubscribeMsg {
	return &SubscribeMsg{
		baseMessage: baseMessage{
			Type: "subscribe_events",
		},
		EventType: eventType,
	}
}

type UnsubscribeMsg struct {
	baseMessage  `mapstructure:",squash"`
	Subscription int64 `json:"subscription"`
}

func (m *UnsubscribeMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.baseMessage.framelessStringWithType())
	out.WriteString(style.ColorizeHABlue(" ✗ "))
	out.WriteString(style.Bold("#" + strconv.FormatInt(m.Subscription, 10)))

	return style.HABlueFrame(out.String())
}

func NewUnsubscribeMsg(subscriptionID int64) *UnsubscribeMsg {
	return &UnsubscribeMsg{
		baseMessage: baseMessage{
			Type: "unsubscribe_events",
		},
		Subscription: subscriptionID,
	}
}

type EventMsg struct {
	baseMessage `mapstructure:",squash"`
	Event       *Event `json:"event" mapstructure:"event"`
}

type ResultMsg struct {
	baseMessage `mapstructure:",squash"`
	Success     bool        `json:"success"         mapstructure:"success"`
	Result      any         `json:"result"          mapstructure:"result"`
	Error       ErrorResult `json:"error,omitempty" mapstructure:"error,omitempty"`
}

func (m *ResultMsg) String() string {
	out := strings.Builder{}

	out.WriteString(m.baseMessage.framelessString())

	var icon string
	if m.Success {
		icon = icons.GreenTick.String()
		out.WriteString("success")
	} else {
		icon = icons.RedCross.String()
		out.WriteString("fail")
		out.WriteString(style.ColorizeHABlue(" → "))
		out.WriteString(m.Error.Code + ": " + m.Error.Message)
	}

	resultsMap, ok := m.Result.([]interface{})
	if ok && len(resultsMap) > 0 && len(resultsMap) < 10 {
		out.WriteString(style.ColorizeHABlue(" → "))
		out.WriteString(fmt.Sprintf("%+v", m.Result))
	}

	return " " + icon + " " + style.HABlueFrame(out.String())
}

type ErrorResult struct {
	Code    string `json:"code"    mapstructure:"code"`
	Message string `json:"message" mapstructure:"message"`
}

func (e ErrorResult) Error() string {
	return e.Code + ": " + e.Message
}
