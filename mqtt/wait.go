// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"slices"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
)

// ConnectAndWait connects and blocks until CONNACK. A refused or failed
// connection returns the recorded error.
func ConnectAndWait(
	ctx context.Context,
	t Transport,
	timeout time.Duration,
) error {
	if err := t.Connect(ctx); err != nil {
		return err
	}
	ok, err := t.Session().Status.WaitForConnected(ctx, timeout)
	switch {
	case err != nil:
		return err
	case !ok:
		return waitFailed(ctx, "connect", timeout)
	default:
		return nil
	}
}

// SubscribeAndWait subscribes and blocks until SUBACK. It returns the granted
// QoS, or a *SubscribeFailedError if the server rejected the filter.
func SubscribeAndWait(
	ctx context.Context,
	t Transport,
	topicFilter string,
	qos QoS,
	timeout time.Duration,
) (QoS, error) {
	id, err := t.Subscribe(ctx, topicFilter, qos)
	if err != nil {
		return 0, err
	}
	granted, ok := t.Session().SubAcks.WaitForAck(ctx, id, timeout)
	if !ok {
		return 0, waitFailed(ctx, "subscribe", timeout)
	}
	if len(granted) == 0 || slices.Contains(granted, GrantedQoSFailure) {
		return 0, &SubscribeFailedError{Filter: topicFilter, Granted: granted}
	}
	return QoS(granted[0]), nil
}

// UnsubscribeAndWait unsubscribes and blocks until UNSUBACK.
func UnsubscribeAndWait(
	ctx context.Context,
	t Transport,
	topicFilter string,
	timeout time.Duration,
) error {
	id, err := t.Unsubscribe(ctx, topicFilter)
	if err != nil {
		return err
	}
	if _, ok := t.Session().UnsubAcks.WaitForAck(ctx, id, timeout); !ok {
		return waitFailed(ctx, "unsubscribe", timeout)
	}
	return nil
}

// PublishAndWait publishes and blocks until the publish completes. A PUBACK
// rejecting the message is returned as a *PublishFailedError.
func PublishAndWait(
	ctx context.Context,
	t Transport,
	topic string,
	payload []byte,
	timeout time.Duration,
	opt ...PublishOption,
) error {
	id, err := t.Publish(ctx, topic, payload, opt...)
	if err != nil {
		return err
	}
	code, ok := t.Session().PubAcks.WaitForAck(ctx, id, timeout)
	if !ok {
		return waitFailed(ctx, "publish", timeout)
	}
	if code >= 0x80 {
		return &PublishFailedError{Topic: topic, ReasonCode: code}
	}
	return nil
}

// DisconnectAndWait disconnects and blocks until the session reports it.
func DisconnectAndWait(t Transport, timeout time.Duration) error {
	err := t.Disconnect()
	ctx := context.Background()
	if !t.Session().Status.WaitForDisconnected(ctx, timeout) {
		return waitFailed(ctx, "disconnect", timeout)
	}
	return err
}

// ReceiveAndWait blocks until a message whose topic matches topicFilter is
// queued, and removes it from the queue.
func ReceiveAndWait(
	ctx context.Context,
	t Transport,
	topicFilter string,
	timeout time.Duration,
) (*Message, error) {
	msg, ok := t.Session().Messages.PopMatching(
		ctx,
		TopicMatches(topicFilter),
		timeout,
	)
	if !ok {
		return nil, waitFailed(ctx, "receive", timeout)
	}
	return msg, nil
}

func waitFailed(
	ctx context.Context,
	name string,
	timeout time.Duration,
) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return &correlation.TimeoutError{Name: name, Timeout: timeout}
}
