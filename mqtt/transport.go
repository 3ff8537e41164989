// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import "context"

// Transport is an MQTT client whose outbound operations return immediately
// with a request identifier, and whose results arrive later through its
// Session. Request identifiers are never 0 and key the session's
// acknowledgment correlators.
type Transport interface {
	// Session returns the session the transport feeds.
	Session() *Session

	// ClientID returns the MQTT client identifier.
	ClientID() string

	// Connect starts connecting; the outcome is reported to
	// Session().Status.
	Connect(ctx context.Context) error

	// Disconnect closes the session; it is reported to Session().Status.
	Disconnect() error

	// Subscribe starts a subscription; its result is reported to
	// Session().SubAcks.
	Subscribe(ctx context.Context, topicFilter string, qos QoS) (uint16, error)

	// Unsubscribe removes a subscription; its result is reported to
	// Session().UnsubAcks.
	Unsubscribe(ctx context.Context, topicFilter string) (uint16, error)

	// Publish sends a message; its completion is reported to
	// Session().PubAcks.
	Publish(
		ctx context.Context,
		topic string,
		payload []byte,
		opt ...PublishOption,
	) (uint16, error)
}
