// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	pub := &mqtt.Message{
		Topic: "vehicles/vehicle03/command/unlock/request",
		PublishOptions: mqtt.PublishOptions{
			CorrelationData: []byte("corr-42"),
			UserProperties: map[string]string{
				PropertyWhen:          "2024-03-01T10:20:30.5Z",
				PropertyRequestedFrom: "mobile-app",
				"trace":               "abc",
			},
		},
	}

	msg := newMessage(context.Background(), log.Logger{}, pub, "payload")
	require.Equal(t, "payload", msg.Payload)
	require.Equal(t, "mobile-app", msg.ClientID)
	require.Equal(t, []byte("corr-42"), msg.CorrelationData)
	require.Equal(t,
		time.Date(2024, 3, 1, 10, 20, 30, 500_000_000, time.UTC),
		msg.Timestamp.UTC(),
	)
	require.Equal(t, map[string]string{"trace": "abc"}, msg.Metadata)
}

func TestNewMessageBadTimestamp(t *testing.T) {
	pub := &mqtt.Message{
		PublishOptions: mqtt.PublishOptions{
			UserProperties: map[string]string{PropertyWhen: "yesterday"},
		},
	}

	msg := newMessage(context.Background(), log.Logger{}, pub, 0)
	require.True(t, msg.Timestamp.IsZero())
}

func TestUserProperties(t *testing.T) {
	props := userProperties(
		map[string]string{"trace": "abc"},
		PropertySucceed, "True",
	)
	require.Equal(t, "abc", props["trace"])
	require.Equal(t, "True", props[PropertySucceed])

	_, err := time.Parse(time.RFC3339Nano, props[PropertyWhen])
	require.NoError(t, err)
}

func TestMessageExpiry(t *testing.T) {
	require.Equal(t, uint32(0), messageExpiry(0))
	require.Equal(t, uint32(1), messageExpiry(10*time.Millisecond))
	require.Equal(t, uint32(10), messageExpiry(10*time.Second))
}

func TestTelemetrySenderPublishOptions(t *testing.T) {
	sender, err := NewTelemetrySender(
		nil,
		JSON[string]{},
		"vehicles/weather/alert",
		WithMessageExpiry(5*time.Minute),
		WithRetain(false),
	)
	require.NoError(t, err)

	data, err := serialize[string](JSON[string]{}, "Heavy Rain")
	require.NoError(t, err)

	var opts mqtt.PublishOptions
	opts.Apply(sender.publishOptions(data, nil))
	require.Equal(t, mqtt.QoS(1), opts.QoS)
	require.False(t, opts.Retain)
	require.Equal(t, uint32(300), opts.MessageExpiry)
	require.Equal(t, "application/json", opts.ContentType)
	require.Nil(t, opts.UserProperties)
}
