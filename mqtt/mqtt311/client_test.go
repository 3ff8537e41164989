// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt311_test

import (
	"context"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/brokertest"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/mqtt311"
	"github.com/stretchr/testify/require"
)

const (
	topicName      = "sample/topic1"
	publishMessage = "hello world!"
	waitTimeout    = 5 * time.Second
)

func TestClientWithMochi(t *testing.T) {
	broker := brokertest.Start(t, true)
	ctx := context.Background()
	tcp := mqtt.TCPConnection(broker.Host, broker.TCPPort)

	newClient := func(t *testing.T, password string) *mqtt311.Client {
		client := mqtt311.NewClient(
			tcp,
			mqtt.WithUsername(brokertest.Username),
			mqtt.WithPassword([]byte(password)),
			mqtt.WithConnectTimeout(waitTimeout),
		)
		t.Cleanup(func() { _ = client.Disconnect() })
		return client
	}

	t.Run("SubscribePublishReceive", func(t *testing.T) {
		client := newClient(t, brokertest.Password)
		require.NoError(t, mqtt.ConnectAndWait(ctx, client, waitTimeout))

		qos, err := mqtt.SubscribeAndWait(
			ctx, client, topicName, 1, waitTimeout,
		)
		require.NoError(t, err)
		require.Equal(t, mqtt.QoS(1), qos)

		require.NoError(t, mqtt.PublishAndWait(
			ctx, client, topicName, []byte(publishMessage), waitTimeout,
			mqtt.WithQoS(1),
		))

		msg, err := mqtt.ReceiveAndWait(ctx, client, "sample/#", waitTimeout)
		require.NoError(t, err)
		require.Equal(t, topicName, msg.Topic)
		require.Equal(t, publishMessage, string(msg.Payload))
		require.Equal(t, mqtt.QoS(1), msg.QoS)

		require.NoError(t, mqtt.UnsubscribeAndWait(
			ctx, client, topicName, waitTimeout,
		))
		require.NoError(t, mqtt.DisconnectAndWait(client, waitTimeout))
		require.False(t, client.Session().Status.Connected())
	})

	t.Run("BadPassword", func(t *testing.T) {
		client := newClient(t, "wrong")

		err := mqtt.ConnectAndWait(ctx, client, waitTimeout)
		var refused *mqtt.ConnectionRefusedError
		require.ErrorAs(t, err, &refused)
	})

	t.Run("UnsupportedOptions", func(t *testing.T) {
		client := newClient(t, brokertest.Password)
		require.NoError(t, mqtt.ConnectAndWait(ctx, client, waitTimeout))

		var unsupported *mqtt311.UnsupportedOptionError
		_, err := client.Publish(
			ctx, topicName, nil, mqtt.WithResponseTopic("reply"),
		)
		require.ErrorAs(t, err, &unsupported)
		require.Equal(t, "response topic", unsupported.Option)

		_, err = client.Publish(
			ctx, topicName, nil, mqtt.WithUserProperties{"a": "b"},
		)
		require.ErrorAs(t, err, &unsupported)

		_, err = client.Subscribe(ctx, topicName, 2)
		require.ErrorAs(t, err, &unsupported)
	})

	t.Run("NotStarted", func(t *testing.T) {
		client := newClient(t, brokertest.Password)

		_, err := client.Subscribe(ctx, topicName, 0)
		var se *mqtt.ClientStateError
		require.ErrorAs(t, err, &se)
		require.Equal(t, mqtt.NotStarted, se.State)
	})
}
