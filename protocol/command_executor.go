// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/protocol/internal"
)

type (
	// CommandExecutor provides the ability to execute a single command.
	CommandExecutor[Req any, Res any] struct {
		transport    mqtt.Transport
		reqEncoding  Encoding[Req]
		resEncoding  Encoding[Res]
		requestTopic string
		handler      CommandHandler[Req, Res]
		opts         CommandExecutorOptions
		log          log.Logger

		mu     sync.Mutex
		pool   *internal.Pool[*mqtt.Message]
		remove func()
	}

	// CommandHandler is the user-provided implementation of a single command
	// execution. It is treated as blocking; all parallelism is handled by the
	// library. This *must* be thread-safe.
	CommandHandler[Req any, Res any] = func(
		context.Context,
		*CommandRequest[Req],
	) (*CommandResponse[Res], error)

	// CommandRequest contains per-message data and methods that are exposed
	// to the command handlers.
	CommandRequest[Req any] struct {
		Message[Req]
	}
)

// DefaultAckTimeout bounds the wait for a response's acknowledgment when no
// WithAckTimeout is given.
const DefaultAckTimeout = 10 * time.Second

// NewCommandExecutor creates a new command executor serving requests
// published to requestTopic.
func NewCommandExecutor[Req, Res any](
	transport mqtt.Transport,
	requestEncoding Encoding[Req],
	responseEncoding Encoding[Res],
	requestTopic string,
	handler CommandHandler[Req, Res],
	opt ...CommandExecutorOption,
) (*CommandExecutor[Req, Res], error) {
	var opts CommandExecutorOptions
	opts.Apply(opt)

	if err := validateTopic("requestTopic", requestTopic); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, &ConfigurationError{Name: "handler", Value: nil}
	}
	if opts.Timeout < 0 {
		return nil, &ConfigurationError{Name: "Timeout", Value: opts.Timeout}
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}

	return &CommandExecutor[Req, Res]{
		transport:    transport,
		reqEncoding:  requestEncoding,
		resEncoding:  responseEncoding,
		requestTopic: requestTopic,
		handler:      handler,
		opts:         opts,
		log:          log.Wrap(opts.Logger),
	}, nil
}

// Start routes requests to the worker pool and subscribes to the request
// topic, waiting for the subscription to be acknowledged.
func (ce *CommandExecutor[Req, Res]) Start(
	ctx context.Context,
	timeout time.Duration,
) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.remove != nil {
		return nil
	}

	pool := internal.NewPool(ce.opts.Concurrency, ce.handle)
	remove := ce.transport.Session().Route(ce.requestTopic, pool.Submit)

	_, err := mqtt.SubscribeAndWait(ctx, ce.transport, ce.filter(), 1, timeout)
	if err != nil {
		remove()
		pool.Close()
		return err
	}

	ce.pool, ce.remove = pool, remove
	return nil
}

// Close unsubscribes from the request topic and stops the worker pool,
// cancelling running handlers.
func (ce *CommandExecutor[Req, Res]) Close(
	ctx context.Context,
	timeout time.Duration,
) error {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.remove == nil {
		return nil
	}
	ce.remove()
	ce.pool.Close()
	ce.remove, ce.pool = nil, nil

	return mqtt.UnsubscribeAndWait(ctx, ce.transport, ce.filter(), timeout)
}

func (ce *CommandExecutor[Req, Res]) filter() string {
	if ce.opts.ShareName != "" {
		return "$share/" + ce.opts.ShareName + "/" + ce.requestTopic
	}
	return ce.requestTopic
}

// handle runs on a pool worker.
func (ce *CommandExecutor[Req, Res]) handle(
	ctx context.Context,
	pub *mqtt.Message,
) {
	if pub.ResponseTopic == "" || len(pub.CorrelationData) == 0 {
		ce.log.Warn(ctx, "request without response topic or correlation data dropped",
			slog.String("topic", pub.Topic),
		)
		return
	}

	ce.log.Debug(ctx, "request received",
		slog.String("topic", pub.Topic),
		slog.String("requested_from", pub.UserProperties[PropertyRequestedFrom]),
	)

	var data *Data
	res, err := ce.execute(ctx, pub)
	if err == nil {
		data, err = serialize(ce.resEncoding, res.Payload)
	}

	var opts []mqtt.PublishOption
	if err != nil {
		ce.log.Warn(ctx, "command failed",
			slog.String("topic", pub.Topic),
			slog.String("error", err.Error()),
		)
		data = &Data{}
		opts = publishOptions(data, mqtt.WithUserProperties(userProperties(
			nil,
			PropertySucceed, "False",
			PropertyError, err.Error(),
		)))
	} else {
		opts = publishOptions(data, mqtt.WithUserProperties(userProperties(
			res.Metadata,
			PropertySucceed, "True",
		)))
	}
	opts = append(opts,
		mqtt.WithQoS(1),
		mqtt.WithCorrelationData(pub.CorrelationData),
	)

	err = mqtt.PublishAndWait(
		ctx,
		ce.transport,
		pub.ResponseTopic,
		data.Payload,
		ce.opts.AckTimeout,
		opts...,
	)
	if err != nil {
		ce.log.Err(ctx, err, slog.String("topic", pub.ResponseTopic))
		return
	}
	ce.log.Debug(ctx, "response sent", slog.String("topic", pub.ResponseTopic))
}

// execute decodes the request and calls the handler with panic catch.
func (ce *CommandExecutor[Req, Res]) execute(
	ctx context.Context,
	pub *mqtt.Message,
) (res *CommandResponse[Res], err error) {
	payload, err := deserialize(ce.reqEncoding, pub)
	if err != nil {
		return nil, err
	}
	req := &CommandRequest[Req]{Message: newMessage(ctx, ce.log, pub, payload)}

	if ce.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(
			ctx,
			ce.opts.Timeout,
			fmt.Errorf("command execution timed out after %s", ce.opts.Timeout),
		)
		defer cancel()
	}

	defer func() {
		if ePanic := recover(); ePanic != nil {
			res, err = nil, fmt.Errorf("command handler panicked: %v", ePanic)
		}
	}()

	res, err = ce.handler(ctx, req)
	switch {
	case err != nil:
		return nil, err
	case ctx.Err() != nil:
		return nil, context.Cause(ctx)
	case res == nil:
		return nil, errors.New("command handler returned no response")
	default:
		return res, nil
	}
}

// Respond is a shorthand to create a command response.
func Respond[Res any](
	payload Res,
	opt ...RespondOption,
) (*CommandResponse[Res], error) {
	var opts RespondOptions
	opts.Apply(opt)
	return &CommandResponse[Res]{Message[Res]{
		Payload:  payload,
		Metadata: opts.Metadata,
	}}, nil
}
