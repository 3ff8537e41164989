// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/relvacode/iso8601"
)

// User properties with a meaning to the protocol layer.
const (
	PropertyWhen          = "When"
	PropertyRequestedFrom = "RequestedFrom"
	PropertySucceed       = "Succeed"
	PropertyError         = "Error"
)

// Message contains common message data that is exposed to message handlers.
type Message[T any] struct {
	// The message payload.
	Payload T

	// The topic the message arrived on.
	Topic string

	// The correlation data of a command request or response.
	CorrelationData []byte

	// The client that sent a command request.
	ClientID string

	// The time the sender reported, or zero if it reported none.
	Timestamp time.Time

	// Any user-provided metadata values.
	Metadata map[string]string
}

var reserved = map[string]bool{
	PropertyWhen:          true,
	PropertyRequestedFrom: true,
	PropertySucceed:       true,
	PropertyError:         true,
}

// newMessage builds the common message data of an inbound publish. A
// malformed timestamp is logged and left zero.
func newMessage[T any](
	ctx context.Context,
	logger log.Logger,
	pub *mqtt.Message,
	payload T,
) Message[T] {
	msg := Message[T]{
		Payload:         payload,
		Topic:           pub.Topic,
		CorrelationData: pub.CorrelationData,
		ClientID:        pub.UserProperties[PropertyRequestedFrom],
		Metadata:        make(map[string]string),
	}

	if when := pub.UserProperties[PropertyWhen]; when != "" {
		ts, err := iso8601.ParseString(when)
		if err != nil {
			logger.Warn(ctx, "invalid timestamp ignored",
				slog.String("topic", pub.Topic),
				slog.String("when", when),
			)
		} else {
			msg.Timestamp = ts
		}
	}

	for k, v := range pub.UserProperties {
		if !reserved[k] {
			msg.Metadata[k] = v
		}
	}
	return msg
}

// userProperties builds the user properties of an outbound publish: the
// metadata followed by the current time.
func userProperties(
	metadata map[string]string,
	extra ...string,
) map[string]string {
	props := make(map[string]string, len(metadata)+len(extra)/2+1)
	maps.Copy(props, metadata)
	props[PropertyWhen] = wallclock.Instance.Now().UTC().Format(time.RFC3339Nano)
	for i := 0; i+1 < len(extra); i += 2 {
		props[extra[i]] = extra[i+1]
	}
	return props
}

// publishOptions converts encoded data into publish options.
func publishOptions(data *Data, opt ...mqtt.PublishOption) []mqtt.PublishOption {
	opts := []mqtt.PublishOption{
		mqtt.WithContentType(data.ContentType),
		mqtt.WithPayloadFormat(data.PayloadFormat),
	}
	return append(opts, opt...)
}
