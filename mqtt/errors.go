// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"fmt"
	"log/slog"
)

// ClientState indicates the lifecycle state of a client.
type ClientState byte

const (
	// The client has not been asked to connect yet.
	NotStarted ClientState = iota

	// The client has been asked to connect and has not been disconnected.
	Started

	// The client has been disconnected by the user and cannot be reused.
	ShutDown
)

// ClientStateError is returned when an operation cannot proceed due to the
// state of the client.
type ClientStateError struct {
	State ClientState
}

func (e *ClientStateError) Error() string {
	switch e.State {
	case NotStarted:
		return "the client has not yet been connected"
	case Started:
		return "the client has already been connected"
	case ShutDown:
		return "the client has been disconnected"
	default:
		// It should not be possible to get here.
		return ""
	}
}

// ConnectionRefusedError is recorded when the server answers CONNECT with a
// failure reason code.
type ConnectionRefusedError struct {
	ReasonCode byte
	Reason     string
}

func (e *ConnectionRefusedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf(
			"connection refused with reason code 0x%02x: %s",
			e.ReasonCode,
			e.Reason,
		)
	}
	return fmt.Sprintf(
		"connection refused with reason code 0x%02x",
		e.ReasonCode,
	)
}

// Attrs returns additional error attributes for slog.
func (e *ConnectionRefusedError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("reason_code", int(e.ReasonCode)),
		slog.String("reason", e.Reason),
	}
}

// ConnectionError indicates that the network connection to the server could
// not be opened or broke. It may wrap an underlying error.
type ConnectionError struct {
	wrapped error
	message string
}

func (e *ConnectionError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ConnectionError) Unwrap() error {
	return e.wrapped
}

// DisconnectError indicates that the server sent a DISCONNECT packet.
type DisconnectError struct {
	ReasonCode byte
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf(
		"received DISCONNECT packet with reason code 0x%02x (%s)",
		e.ReasonCode,
		ReasonString(e.ReasonCode),
	)
}

// InvalidArgumentError indicates that the user has provided an invalid value
// for an option or setting. It may wrap an underlying error.
type InvalidArgumentError struct {
	wrapped error
	message string
}

func (e *InvalidArgumentError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.wrapped
}

// SubscribeFailedError is returned by SubscribeAndWait when the server
// rejected the subscription.
type SubscribeFailedError struct {
	Filter  string
	Granted []int
}

func (e *SubscribeFailedError) Error() string {
	return fmt.Sprintf(
		"subscription to %q was rejected (granted %v)",
		e.Filter,
		e.Granted,
	)
}

// PublishFailedError is returned by PublishAndWait when the server
// acknowledged the publish with a failure reason code.
type PublishFailedError struct {
	Topic      string
	ReasonCode byte
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf(
		"publish to %q was rejected: %s",
		e.Topic,
		ReasonString(e.ReasonCode),
	)
}

// Attrs returns additional error attributes for slog.
func (e *PublishFailedError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("topic", e.Topic),
		slog.Int("reason_code", int(e.ReasonCode)),
	}
}

// SettingError indicates that a connection setting is missing or invalid.
type SettingError struct {
	Setting string
	Value   string
	message string
	wrapped error
}

func (e *SettingError) Error() string {
	msg := fmt.Sprintf("invalid setting %s: %s", e.Setting, e.message)
	if e.wrapped != nil {
		msg += ": " + e.wrapped.Error()
	}
	return msg
}

func (e *SettingError) Unwrap() error {
	return e.wrapped
}

// Attrs returns additional error attributes for slog.
func (e *SettingError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("setting", e.Setting),
		slog.String("value", e.Value),
	}
}
