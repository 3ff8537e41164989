// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
)

type (
	// CommandInvokerOption represents a single command invoker option.
	CommandInvokerOption interface{ commandInvoker(*CommandInvokerOptions) }

	// CommandInvokerOptions are the resolved command invoker options.
	CommandInvokerOptions struct {
		Logger *slog.Logger
	}

	// InvokeOption represent a single per-invoke option.
	InvokeOption interface{ invoke(*InvokeOptions) }

	// InvokeOptions are the resolved per-invoke options.
	InvokeOptions struct {
		Metadata map[string]string
	}

	// RespondOption represent a single per-response option.
	RespondOption interface{ respond(*RespondOptions) }

	// RespondOptions are the resolved per-response options.
	RespondOptions struct {
		Metadata map[string]string
	}

	// CommandExecutorOption represents a single command executor option.
	CommandExecutorOption interface{ commandExecutor(*CommandExecutorOptions) }

	// CommandExecutorOptions are the resolved command executor options.
	CommandExecutorOptions struct {
		Concurrency uint
		Timeout     time.Duration
		AckTimeout  time.Duration
		ShareName   string
		Logger      *slog.Logger
	}

	// TelemetrySenderOption represents a single telemetry sender option.
	TelemetrySenderOption interface {
		telemetrySender(*TelemetrySenderOptions)
	}

	// TelemetrySenderOptions are the resolved telemetry sender options.
	TelemetrySenderOptions struct {
		QoS           mqtt.QoS
		Retain        bool
		MessageExpiry time.Duration
		Logger        *slog.Logger
	}

	// SendOption represent a single per-send option.
	SendOption interface{ send(*SendOptions) }

	// SendOptions are the resolved per-send options.
	SendOptions struct {
		Metadata map[string]string
	}

	// TelemetryReceiverOption represents a single telemetry receiver option.
	TelemetryReceiverOption interface {
		telemetryReceiver(*TelemetryReceiverOptions)
	}

	// TelemetryReceiverOptions are the resolved telemetry receiver options.
	TelemetryReceiverOptions struct {
		QoS    mqtt.QoS
		Logger *slog.Logger
	}

	// WithConcurrency indicates how many handlers can execute in parallel.
	WithConcurrency uint

	// WithTimeout applies a context timeout to handler execution.
	WithTimeout time.Duration

	// WithAckTimeout bounds the wait for the acknowledgment of a response.
	WithAckTimeout time.Duration

	// WithShareName connects this executor to a shared MQTT subscription.
	WithShareName string

	// WithQoS sets the QoS of telemetry publishes or subscriptions.
	WithQoS mqtt.QoS

	// WithRetain indicates that the telemetry event should be retained by the
	// broker.
	WithRetain bool

	// WithMessageExpiry asks the broker to discard telemetry not delivered
	// within the given duration, rounded up to whole seconds. It requires
	// MQTT v5.
	WithMessageExpiry time.Duration

	// WithMetadata specifies user-provided metadata values.
	WithMetadata map[string]string

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// each calls fn for every non-nil option, opts first.
func each[O comparable](opts, rest []O, fn func(O)) {
	var none O
	for _, opt := range slices.Concat(opts, rest) {
		if opt != none {
			fn(opt)
		}
	}
}

// Apply resolves the provided list of options.
func (o *CommandInvokerOptions) Apply(
	opts []CommandInvokerOption,
	rest ...CommandInvokerOption,
) {
	each(opts, rest, func(opt CommandInvokerOption) { opt.commandInvoker(o) })
}

// Apply resolves the provided list of options.
func (o *InvokeOptions) Apply(opts []InvokeOption, rest ...InvokeOption) {
	each(opts, rest, func(opt InvokeOption) { opt.invoke(o) })
}

// Apply resolves the provided list of options.
func (o *RespondOptions) Apply(opts []RespondOption, rest ...RespondOption) {
	each(opts, rest, func(opt RespondOption) { opt.respond(o) })
}

// Apply resolves the provided list of options.
func (o *CommandExecutorOptions) Apply(
	opts []CommandExecutorOption,
	rest ...CommandExecutorOption,
) {
	each(opts, rest, func(opt CommandExecutorOption) { opt.commandExecutor(o) })
}

// Apply resolves the provided list of options.
func (o *TelemetrySenderOptions) Apply(
	opts []TelemetrySenderOption,
	rest ...TelemetrySenderOption,
) {
	each(opts, rest, func(opt TelemetrySenderOption) { opt.telemetrySender(o) })
}

// Apply resolves the provided list of options.
func (o *SendOptions) Apply(opts []SendOption, rest ...SendOption) {
	each(opts, rest, func(opt SendOption) { opt.send(o) })
}

// Apply resolves the provided list of options.
func (o *TelemetryReceiverOptions) Apply(
	opts []TelemetryReceiverOption,
	rest ...TelemetryReceiverOption,
) {
	each(opts, rest, func(opt TelemetryReceiverOption) {
		opt.telemetryReceiver(o)
	})
}

func (o WithConcurrency) commandExecutor(opt *CommandExecutorOptions) {
	opt.Concurrency = uint(o)
}

func (o WithTimeout) commandExecutor(opt *CommandExecutorOptions) {
	opt.Timeout = time.Duration(o)
}

func (o WithAckTimeout) commandExecutor(opt *CommandExecutorOptions) {
	opt.AckTimeout = time.Duration(o)
}

func (o WithShareName) commandExecutor(opt *CommandExecutorOptions) {
	opt.ShareName = string(o)
}

func (o WithQoS) telemetrySender(opt *TelemetrySenderOptions) {
	opt.QoS = mqtt.QoS(o)
}

func (o WithQoS) telemetryReceiver(opt *TelemetryReceiverOptions) {
	opt.QoS = mqtt.QoS(o)
}

func (o WithRetain) telemetrySender(opt *TelemetrySenderOptions) {
	opt.Retain = bool(o)
}

func (o WithMessageExpiry) telemetrySender(opt *TelemetrySenderOptions) {
	opt.MessageExpiry = time.Duration(o)
}

func (o WithMetadata) apply(values map[string]string) map[string]string {
	if values == nil {
		values = make(map[string]string, len(o))
	}
	maps.Copy(values, o)
	return values
}

func (o WithMetadata) invoke(opt *InvokeOptions) {
	opt.Metadata = o.apply(opt.Metadata)
}

func (o WithMetadata) respond(opt *RespondOptions) {
	opt.Metadata = o.apply(opt.Metadata)
}

func (o WithMetadata) send(opt *SendOptions) {
	opt.Metadata = o.apply(opt.Metadata)
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) interface {
	CommandExecutorOption
	CommandInvokerOption
	TelemetryReceiverOption
	TelemetrySenderOption
} {
	return withLogger{logger}
}

func (o withLogger) commandExecutor(opt *CommandExecutorOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) commandInvoker(opt *CommandInvokerOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) telemetryReceiver(opt *TelemetryReceiverOptions) {
	opt.Logger = o.Logger
}

func (o withLogger) telemetrySender(opt *TelemetrySenderOptions) {
	opt.Logger = o.Logger
}
