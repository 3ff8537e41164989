// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/google/uuid"
)

type (
	// CommandInvoker provides the ability to invoke a single command and
	// await its response.
	CommandInvoker[Req any, Res any] struct {
		transport     mqtt.Transport
		reqEncoding   Encoding[Req]
		resEncoding   Encoding[Res]
		requestTopic  string
		responseTopic string
		ledger        *correlation.RequestLedger[*mqtt.Message]
		log           log.Logger

		mu     sync.Mutex
		remove func()
	}

	// CommandResponse contains per-message data and methods that are
	// returned by the command handlers.
	CommandResponse[Res any] struct {
		Message[Res]
	}
)

// ErrNotListening is returned by Invoke before Listen has succeeded.
var ErrNotListening = errors.New("command invoker is not listening")

// NewCommandInvoker creates a new command invoker. Requests are published to
// requestTopic and responses are expected on responseTopic.
func NewCommandInvoker[Req, Res any](
	transport mqtt.Transport,
	requestEncoding Encoding[Req],
	responseEncoding Encoding[Res],
	requestTopic string,
	responseTopic string,
	opt ...CommandInvokerOption,
) (*CommandInvoker[Req, Res], error) {
	var opts CommandInvokerOptions
	opts.Apply(opt)

	if err := validateTopic("requestTopic", requestTopic); err != nil {
		return nil, err
	}
	if err := validateTopic("responseTopic", responseTopic); err != nil {
		return nil, err
	}

	return &CommandInvoker[Req, Res]{
		transport:     transport,
		reqEncoding:   requestEncoding,
		resEncoding:   responseEncoding,
		requestTopic:  requestTopic,
		responseTopic: responseTopic,
		ledger:        correlation.NewRequestLedger[*mqtt.Message](),
		log:           log.Wrap(opts.Logger),
	}, nil
}

// Listen routes responses to the invoker and subscribes to the response
// topic, waiting for the subscription to be acknowledged.
func (ci *CommandInvoker[Req, Res]) Listen(
	ctx context.Context,
	timeout time.Duration,
) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.remove != nil {
		return nil
	}

	remove := ci.transport.Session().Route(ci.responseTopic, ci.onResponse)
	_, err := mqtt.SubscribeAndWait(
		ctx,
		ci.transport,
		ci.responseTopic,
		1,
		timeout,
	)
	if err != nil {
		remove()
		return err
	}
	ci.remove = remove
	return nil
}

// Invoke sends a request and waits for its response. The timeout covers
// both the acknowledgment of the request and the arrival of the response.
func (ci *CommandInvoker[Req, Res]) Invoke(
	ctx context.Context,
	req Req,
	timeout time.Duration,
	opt ...InvokeOption,
) (*CommandResponse[Res], error) {
	var opts InvokeOptions
	opts.Apply(opt)

	ci.mu.Lock()
	listening := ci.remove != nil
	ci.mu.Unlock()
	if !listening {
		return nil, ErrNotListening
	}

	correlationID := uuid.New()
	handle, err := ci.ledger.Begin(correlationID[:])
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	data, err := serialize(ci.reqEncoding, req)
	if err != nil {
		return nil, err
	}

	deadline, _ := wallclock.Deadline(timeout)
	props := userProperties(
		opts.Metadata,
		PropertyRequestedFrom, ci.transport.ClientID(),
	)

	err = mqtt.PublishAndWait(
		ctx,
		ci.transport,
		ci.requestTopic,
		data.Payload,
		timeout,
		publishOptions(data,
			mqtt.WithQoS(1),
			mqtt.WithResponseTopic(ci.responseTopic),
			mqtt.WithCorrelationData(correlationID[:]),
			mqtt.WithMessageExpiry(messageExpiry(timeout)),
			mqtt.WithUserProperties(props),
		)...,
	)
	if err != nil {
		return nil, err
	}
	ci.log.Debug(ctx, "request sent",
		slog.String("topic", ci.requestTopic),
		slog.String("correlation_id", correlationID.String()),
	)

	pub, err := handle.Await(ctx, deadline.Sub(wallclock.Instance.Now()))
	if err != nil {
		var te *correlation.TimeoutError
		if errors.As(err, &te) {
			te.Name = "command response"
			te.Timeout = timeout
		}
		return nil, err
	}
	return ci.response(ctx, pub)
}

// Close removes the response route and unsubscribes from the response topic.
func (ci *CommandInvoker[Req, Res]) Close(
	ctx context.Context,
	timeout time.Duration,
) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.remove == nil {
		return nil
	}
	ci.remove()
	ci.remove = nil

	return mqtt.UnsubscribeAndWait(
		ctx,
		ci.transport,
		ci.responseTopic,
		timeout,
	)
}

// onResponse runs on the transport's callback goroutine; resolving the ledger
// never blocks.
func (ci *CommandInvoker[Req, Res]) onResponse(pub *mqtt.Message) {
	ctx := context.Background()
	if len(pub.CorrelationData) == 0 {
		ci.log.Warn(ctx, "response without correlation data dropped",
			slog.String("topic", pub.Topic),
		)
		return
	}

	if err := ci.ledger.Resolve(pub.CorrelationData, pub); err != nil {
		// Most likely a response arriving after its request timed out.
		ci.log.Err(ctx, err, slog.String("topic", pub.Topic))
	}
}

func (ci *CommandInvoker[Req, Res]) response(
	ctx context.Context,
	pub *mqtt.Message,
) (*CommandResponse[Res], error) {
	if succeed, ok := pub.UserProperties[PropertySucceed]; ok &&
		!strings.EqualFold(succeed, "true") {
		return nil, &RemoteError{Message: pub.UserProperties[PropertyError]}
	}

	payload, err := deserialize(ci.resEncoding, pub)
	if err != nil {
		return nil, err
	}
	return &CommandResponse[Res]{
		Message: newMessage(ctx, ci.log, pub, payload),
	}, nil
}

// messageExpiry converts a timeout to whole seconds, rounding up.
func messageExpiry(timeout time.Duration) uint32 {
	if timeout <= 0 {
		return 0
	}
	return uint32(min(math.Ceil(timeout.Seconds()), math.MaxUint32))
}

func validateTopic(name, topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return &ConfigurationError{Name: name, Value: topic}
	}
	return nil
}
