// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"fmt"
	"log/slog"
	"time"
)

type (
	// InvalidArgumentError is returned when a primitive is handed a value it
	// cannot accept, such as a nil error for ConnectionStatus.MarkError.
	InvalidArgumentError struct {
		message string
	}

	// TimeoutError is returned when a wait that treats absence as failure
	// expires.
	TimeoutError struct {
		Name    string
		Timeout time.Duration
	}

	// DuplicateCorrelationError is returned when a request is begun with a
	// correlation identifier that is already pending.
	DuplicateCorrelationError struct {
		CorrelationID []byte
	}

	// UnknownCorrelationError is returned when a response is resolved for a
	// correlation identifier with no pending request.
	UnknownCorrelationError struct {
		CorrelationID []byte
	}

	// DoubleResolveError is returned when a response slot is assigned more
	// than once.
	DoubleResolveError struct {
		CorrelationID []byte
	}
)

func (e *InvalidArgumentError) Error() string {
	return e.message
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Name, e.Timeout)
}

// Attrs returns additional error attributes for slog.
func (e *TimeoutError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("operation", e.Name),
		slog.Duration("timeout", e.Timeout),
	}
}

func (e *DuplicateCorrelationError) Error() string {
	return fmt.Sprintf(
		"request with correlation data %x is already pending",
		e.CorrelationID,
	)
}

func (e *UnknownCorrelationError) Error() string {
	return fmt.Sprintf(
		"no pending request with correlation data %x",
		e.CorrelationID,
	)
}

func (e *DoubleResolveError) Error() string {
	return fmt.Sprintf(
		"response for correlation data %x was already resolved",
		e.CorrelationID,
	)
}

// Attrs returns additional error attributes for slog.
func (e *UnknownCorrelationError) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("correlation_data", fmt.Sprintf("%x", e.CorrelationID)),
	}
}
