// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"fmt"
	"log/slog"
)

type (
	// PayloadError indicates that a payload could not be encoded or decoded.
	PayloadError struct {
		Message     string
		ContentType string
		wrapped     error
	}

	// RemoteError is returned by an invoker when the executor reported that
	// the command did not succeed.
	RemoteError struct {
		Message string
	}

	// ConfigurationError indicates an invalid constructor argument.
	ConfigurationError struct {
		Name  string
		Value any
	}
)

func (e *PayloadError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *PayloadError) Unwrap() error {
	return e.wrapped
}

// Attrs returns additional error attributes for slog.
func (e *PayloadError) Attrs() []slog.Attr {
	return []slog.Attr{slog.String("content_type", e.ContentType)}
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "command failed"
	}
	return "command failed: " + e.Message
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Name, e.Value)
}

// Attrs returns additional error attributes for slog.
func (e *ConfigurationError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("property_name", e.Name),
		slog.Any("property_value", e.Value),
	}
}
