// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol_test

import (
	"context"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/brokertest"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/mqtt311"
	"github.com/Azure-Samples/MqttApplicationSamples/protocol"
	"github.com/stretchr/testify/require"
)

type position struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	broker := brokertest.Start(t, false)

	receiver, err := protocol.NewTelemetryReceiver(
		connect(t, broker, "consumer"),
		protocol.JSON[position]{},
		"vehicles/+/position",
	)
	require.NoError(t, err)
	require.NoError(t, receiver.Start(ctx, waitTimeout))
	t.Cleanup(func() { _ = receiver.Close(ctx, waitTimeout) })

	sender, err := protocol.NewTelemetrySender(
		connect(t, broker, "vehicle01"),
		protocol.JSON[position]{},
		"vehicles/vehicle01/position",
	)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, sender.Send(ctx, position{
			Type:        "Point",
			Coordinates: []float64{float64(i), 47.6},
		}, waitTimeout, protocol.WithMetadata{"seq": "x"}))
	}

	for i := range 3 {
		msg, err := receiver.Receive(ctx, waitTimeout)
		require.NoError(t, err)
		require.Equal(t, "vehicles/vehicle01/position", msg.Topic)
		require.Equal(t, float64(i), msg.Payload.Coordinates[0])
		require.Equal(t, "x", msg.Metadata["seq"])
	}

	_, err = receiver.Receive(ctx, 50*time.Millisecond)
	var te *correlation.TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestTelemetryMQTT311(t *testing.T) {
	ctx := context.Background()
	broker := brokertest.Start(t, false)

	client := mqtt311.NewClient(mqtt.TCPConnection(broker.Host, broker.TCPPort))
	require.NoError(t, mqtt.ConnectAndWait(ctx, client, waitTimeout))
	t.Cleanup(func() { _ = mqtt.DisconnectAndWait(client, waitTimeout) })

	receiver, err := protocol.NewTelemetryReceiver(
		client,
		protocol.JSON[position]{},
		"vehicles/+/position",
	)
	require.NoError(t, err)
	require.NoError(t, receiver.Start(ctx, waitTimeout))

	sender, err := protocol.NewTelemetrySender(
		client,
		protocol.JSON[position]{},
		"vehicles/vehicle02/position",
	)
	require.NoError(t, err)
	require.NoError(t, sender.Send(ctx, position{
		Type:        "Point",
		Coordinates: []float64{-122.1, 47.6},
	}, waitTimeout))

	msg, err := receiver.Receive(ctx, waitTimeout)
	require.NoError(t, err)
	require.Equal(t, []float64{-122.1, 47.6}, msg.Payload.Coordinates)

	// User properties cannot be carried by MQTT 3.1.1.
	var unsupported *mqtt311.UnsupportedOptionError
	require.ErrorAs(t, sender.Send(
		ctx, position{}, waitTimeout, protocol.WithMetadata{"seq": "1"},
	), &unsupported)
}
