package mqtt

import (
	"errors"
	"time"

	"github.com/benleb/eventsensor-go/internal/icons"
	"github.com/benleb/eventsensor-go/internal/models"
	"github.com/benleb/eventsensor-go/internal/style"
	paho "github.com/eclipse/paho.mqtt.golang"
)

var (
	connectTimeout = 5 * time.Second

	ErrConnectTimeout = errors.New("unable to connect in time")
)

// Client is the part of the paho client used to publish states.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Connect creates a client for the broker and connects it.
func Connect(broker string, clientID string, username string, password string) (paho.Client, error) { //nolint:ireturn
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(func(paho.Client) {
			models.Printer.Infof("%s connected to %s", icons.ConnectionChain, style.Bold(broker))
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			models.Printer.Warnf("%s connection to %s lost: %v", icons.ReconnectCircle, style.Bold(broker), err)
		})

	client := paho.NewClient(opts)

	token := client.Connect()
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			return nil, err
		}

		return client, nil
	}

	return nil, ErrConnectTimeout
}
