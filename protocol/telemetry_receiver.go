// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
)

type (
	// TelemetryReceiver provides the ability to receive telemetry from a
	// topic filter.
	TelemetryReceiver[T any] struct {
		transport mqtt.Transport
		encoding  Encoding[T]
		filter    string
		opts      TelemetryReceiverOptions
		log       log.Logger
	}

	// TelemetryMessage contains per-message data and methods that are exposed
	// to telemetry consumers.
	TelemetryMessage[T any] struct {
		Message[T]
	}
)

// NewTelemetryReceiver creates a new telemetry receiver for topicFilter. It
// subscribes at QoS 1 unless WithQoS says otherwise.
func NewTelemetryReceiver[T any](
	transport mqtt.Transport,
	encoding Encoding[T],
	topicFilter string,
	opt ...TelemetryReceiverOption,
) (*TelemetryReceiver[T], error) {
	opts := TelemetryReceiverOptions{QoS: 1}
	opts.Apply(opt)

	if topicFilter == "" {
		return nil, &ConfigurationError{Name: "topicFilter", Value: topicFilter}
	}
	if opts.QoS > 1 {
		return nil, &ConfigurationError{Name: "QoS", Value: opts.QoS}
	}

	return &TelemetryReceiver[T]{
		transport: transport,
		encoding:  encoding,
		filter:    topicFilter,
		opts:      opts,
		log:       log.Wrap(opts.Logger),
	}, nil
}

// Start subscribes to the topic filter, waiting for the subscription to be
// acknowledged.
func (tr *TelemetryReceiver[T]) Start(
	ctx context.Context,
	timeout time.Duration,
) error {
	_, err := mqtt.SubscribeAndWait(
		ctx,
		tr.transport,
		tr.filter,
		tr.opts.QoS,
		timeout,
	)
	return err
}

// Receive takes the oldest queued message matching the topic filter, waiting
// for one to arrive, and decodes it. A message that fails to decode is
// consumed and its *PayloadError returned.
func (tr *TelemetryReceiver[T]) Receive(
	ctx context.Context,
	timeout time.Duration,
) (*TelemetryMessage[T], error) {
	pub, err := mqtt.ReceiveAndWait(ctx, tr.transport, tr.filter, timeout)
	if err != nil {
		return nil, err
	}

	payload, err := deserialize(tr.encoding, pub)
	if err != nil {
		tr.log.Err(ctx, err)
		return nil, err
	}
	return &TelemetryMessage[T]{
		Message: newMessage(ctx, tr.log, pub, payload),
	}, nil
}

// Close unsubscribes from the topic filter.
func (tr *TelemetryReceiver[T]) Close(
	ctx context.Context,
	timeout time.Duration,
) error {
	return mqtt.UnsubscribeAndWait(ctx, tr.transport, tr.filter, timeout)
}
