// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/internal"
)

// Session is the state of one clean MQTT session as seen by application
// goroutines. A transport feeds it through the On* callbacks from a single
// callback goroutine, in protocol arrival order; application goroutines block
// on its primitives until the callbacks satisfy them. The callbacks never
// block on anything application goroutines control.
type Session struct {
	// Status tracks the connection.
	Status correlation.ConnectionStatus

	// SubAcks holds the granted results of each SUBACK, keyed by request
	// identifier. Rejected subscriptions are reported as GrantedQoSFailure.
	SubAcks *correlation.AckCorrelator[uint16, []int]

	// UnsubAcks holds UNSUBACK arrivals, keyed and valued by request
	// identifier.
	UnsubAcks *correlation.AckCorrelator[uint16, uint16]

	// PubAcks holds publish completions keyed by request identifier. The
	// value is the PUBACK reason code; QoS 0 and MQTT 3.1.1 report 0.
	PubAcks *correlation.AckCorrelator[uint16, byte]

	// Messages buffers inbound messages that no route claimed.
	Messages correlation.InboundQueue[*Message]

	routes internal.Routes[MessageHandler]
	log    logger
}

// NewSession creates the state for a new session.
func NewSession(opt ...Option) *Session {
	var opts Options
	opts.Apply(opt)

	ackOpts := func(name string) []correlation.Option {
		return []correlation.Option{
			correlation.WithName(name),
			correlation.WithAckExpiry(opts.AckExpiry),
			correlation.WithLogger(opts.Logger),
		}
	}

	return &Session{
		SubAcks:   correlation.NewAckCorrelator[uint16, []int](ackOpts("suback")...),
		UnsubAcks: correlation.NewAckCorrelator[uint16, uint16](ackOpts("unsuback")...),
		PubAcks:   correlation.NewAckCorrelator[uint16, byte](ackOpts("puback")...),
		log:       logger{log.Wrap(opts.Logger)},
	}
}

// Route delivers inbound messages whose topic matches the filter to handler
// instead of queueing them. Routes are consulted oldest first. The returned
// function removes the route.
func (s *Session) Route(topicFilter string, handler MessageHandler) func() {
	return s.routes.Add(topicFilter, handler)
}

// OnConnect handles CONNACK. A non-zero reason code is recorded as a
// *ConnectionRefusedError.
func (s *Session) OnConnect(reasonCode byte, reason string) {
	ctx := context.Background()
	if reasonCode == 0 {
		s.log.Info(ctx, "connected")
		s.Status.MarkConnected()
		return
	}

	if reason == "" {
		reason = ReasonString(reasonCode)
	}
	err := &ConnectionRefusedError{ReasonCode: reasonCode, Reason: reason}
	s.log.Err(ctx, err)
	_ = s.Status.MarkError(err)
}

// OnConnectError handles a failure to reach the server before any CONNACK.
func (s *Session) OnConnectError(err error) {
	var ce *ConnectionError
	var cr *ConnectionRefusedError
	if !errors.As(err, &ce) && !errors.As(err, &cr) {
		err = &ConnectionError{message: "error connecting", wrapped: err}
	}
	s.log.Err(context.Background(), err)
	_ = s.Status.MarkError(err)
}

// OnDisconnect handles the end of the connection; err is nil for a
// disconnection the client asked for.
func (s *Session) OnDisconnect(err error) {
	ctx := context.Background()
	if err != nil {
		s.log.Warn(ctx, "disconnected", slog.String("error", err.Error()))
	} else {
		s.log.Info(ctx, "disconnected")
	}
	s.Status.MarkDisconnected()
}

// OnSubscribeAck handles SUBACK, translating each reason code to its granted
// result.
func (s *Session) OnSubscribeAck(id uint16, reasonCodes []byte) {
	ctx := context.Background()
	granted := make([]int, len(reasonCodes))
	for i, code := range reasonCodes {
		granted[i] = GrantedResult(code)
		if granted[i] == GrantedQoSFailure {
			s.log.Warn(ctx, "subscription rejected",
				slog.Int("request_id", int(id)),
				slog.Int("reason_code", int(code)),
				slog.String("reason", ReasonString(code)),
			)
		}
	}
	s.log.Debug(ctx, "suback",
		slog.Int("request_id", int(id)),
		slog.Any("granted", granted),
	)
	s.SubAcks.RecordAck(id, granted)
}

// OnUnsubscribeAck handles UNSUBACK.
func (s *Session) OnUnsubscribeAck(id uint16) {
	s.log.Debug(context.Background(), "unsuback", slog.Int("request_id", int(id)))
	s.UnsubAcks.RecordAck(id, id)
}

// OnPublishAck handles completion of a publish: PUBACK for QoS 1, or the
// packet having been written for QoS 0.
func (s *Session) OnPublishAck(id uint16, reasonCode byte) {
	s.log.Debug(context.Background(), "puback",
		slog.Int("request_id", int(id)),
		slog.String("reason", ReasonString(reasonCode)),
	)
	s.PubAcks.RecordAck(id, reasonCode)
}

// OnMessage handles an inbound PUBLISH, either by its route or by queueing
// it.
func (s *Session) OnMessage(msg *Message) {
	ctx := context.Background()
	s.log.Packet(ctx, "publish received", msg)

	if h, ok := s.routes.Match(msg.Topic, IsTopicFilterMatch); ok {
		h(msg)
		return
	}
	s.Messages.Push(msg)
}
