// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
)

// TelemetrySender provides the ability to send a single telemetry.
type TelemetrySender[T any] struct {
	transport mqtt.Transport
	encoding  Encoding[T]
	topic     string
	opts      TelemetrySenderOptions
	log       log.Logger
}

// NewTelemetrySender creates a new telemetry sender publishing to topic. It
// publishes at QoS 1 unless WithQoS says otherwise.
func NewTelemetrySender[T any](
	transport mqtt.Transport,
	encoding Encoding[T],
	topic string,
	opt ...TelemetrySenderOption,
) (*TelemetrySender[T], error) {
	opts := TelemetrySenderOptions{QoS: 1}
	opts.Apply(opt)

	if err := validateTopic("topic", topic); err != nil {
		return nil, err
	}
	if opts.QoS > 1 {
		return nil, &ConfigurationError{Name: "QoS", Value: opts.QoS}
	}

	return &TelemetrySender[T]{
		transport: transport,
		encoding:  encoding,
		topic:     topic,
		opts:      opts,
		log:       log.Wrap(opts.Logger),
	}, nil
}

// Send publishes a telemetry value and waits for the publish to complete. A
// timeout is reported as a *correlation.TimeoutError.
func (ts *TelemetrySender[T]) Send(
	ctx context.Context,
	val T,
	timeout time.Duration,
	opt ...SendOption,
) error {
	var opts SendOptions
	opts.Apply(opt)

	data, err := serialize(ts.encoding, val)
	if err != nil {
		return err
	}

	err = mqtt.PublishAndWait(
		ctx,
		ts.transport,
		ts.topic,
		data.Payload,
		timeout,
		ts.publishOptions(data, opts.Metadata)...,
	)
	if err != nil {
		return err
	}
	ts.log.Debug(ctx, "telemetry sent", slog.String("topic", ts.topic))
	return nil
}

// MQTT 3.1.1 carries no properties, so they are only set when needed.
func (ts *TelemetrySender[T]) publishOptions(
	data *Data,
	metadata map[string]string,
) []mqtt.PublishOption {
	opts := []mqtt.PublishOption{
		mqtt.WithQoS(ts.opts.QoS),
		mqtt.WithRetain(ts.opts.Retain),
	}
	if data.ContentType != "" {
		opts = append(opts, mqtt.WithContentType(data.ContentType))
	}
	if data.PayloadFormat != mqtt.PayloadFormatBytes {
		opts = append(opts, mqtt.WithPayloadFormat(data.PayloadFormat))
	}
	if expiry := messageExpiry(ts.opts.MessageExpiry); expiry != 0 {
		opts = append(opts, mqtt.WithMessageExpiry(expiry))
	}
	if len(metadata) != 0 {
		opts = append(opts, mqtt.WithUserProperties(userProperties(metadata)))
	}
	return opts
}
