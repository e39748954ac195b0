package models

import (
	"errors"
	"fmt"
)

var (
	// general errors.
	ErrEmptyURL   = errors.New("URL cannot be empty")
	ErrEmptyToken = errors.New("token cannot be empty")

	// connection errors.
	ErrNoConnectionToReadFrom = errors.New("no connection to read from")
	ErrNoConnectionToWriteTo  = errors.New("no connection to write to")
	ErrConnectionClosed       = errors.New("connection closed")

	// home assistant errors.
	ErrUnexpectedMessageType = errors.New("unexpected message type")
	ErrAuthFailed            = errors.New("authentication failed")
	ErrRequestFailed         = errors.New("request failed")
	ErrUnexpectedStatus      = errors.New("unexpected http status")

	// entity errors.
	ErrEmptyEntityID   = errors.New("empty entity id")
	ErrInvalidEntityID = errors.New("invalid entity id")

	// config entry errors.
	ErrInvalidConfig     = errors.New("invalid config")
	ErrAlreadyConfigured = errors.New("sensor already configured")
	ErrUnknownEntry      = errors.New("unknown config entry")
	ErrUnsupportedOutput = errors.New("unsupported output")
	ErrMissingStateKey   = errors.New("state key not in event data")
)

func EmptyEntityIDErr() error {
	return fmt.Errorf("%w", ErrEmptyEntityID)
}

func InvalidEntityIDErr(rawEntityID string) error {
	return fmt.Errorf("%w: %s", ErrInvalidEntityID, rawEntityID)
}

func InvalidConfigErr(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, reason)
}
