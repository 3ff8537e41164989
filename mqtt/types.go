// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

type (
	// QoS is an MQTT quality-of-service level. Only 0 and 1 are supported.
	QoS byte

	// PayloadFormat is the MQTT payload format indicator.
	PayloadFormat byte

	// Message is an inbound PUBLISH as handed to consumers.
	Message struct {
		Topic   string
		Payload []byte
		PublishOptions
	}

	// MessageHandler handles messages delivered to a route. It runs on the
	// callback goroutine and must return quickly.
	MessageHandler = func(*Message)

	// PublishOptions are the resolved publish options. For inbound messages
	// they carry the metadata the sender set.
	PublishOptions struct {
		ContentType     string
		CorrelationData []byte
		MessageExpiry   uint32
		PayloadFormat   PayloadFormat
		QoS             QoS
		ResponseTopic   string
		Retain          bool
		UserProperties  map[string]string
	}

	// PublishOption represents a single publish option.
	PublishOption interface{ publish(*PublishOptions) }
)

const (
	// PayloadFormatBytes marks an unspecified binary payload.
	PayloadFormatBytes PayloadFormat = 0

	// PayloadFormatUTF8 marks a UTF-8 encoded character payload.
	PayloadFormatUTF8 PayloadFormat = 1
)
