// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/brokertest"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/protocol"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

type (
	unlockRequest struct {
		When          time.Time `json:"when"`
		RequestedFrom string    `json:"requestedFrom"`
	}

	unlockResponse struct {
		Succeed bool `json:"succeed"`
	}
)

func connect(t *testing.T, broker *brokertest.Broker, id string) *mqtt.Client {
	client := mqtt.NewClient(
		mqtt.TCPConnection(broker.Host, broker.TCPPort),
		mqtt.WithClientID(id),
	)
	require.NoError(t, mqtt.ConnectAndWait(
		context.Background(), client, waitTimeout,
	))
	t.Cleanup(func() { _ = mqtt.DisconnectAndWait(client, waitTimeout) })
	return client
}

func TestCommand(t *testing.T) {
	ctx := context.Background()
	broker := brokertest.Start(t, false)

	const (
		requestTopic  = "vehicles/vehicle03/command/unlock/request"
		responseTopic = "vehicles/vehicle03/command/unlock/response"
	)

	var fail atomic.Bool
	executor, err := protocol.NewCommandExecutor(
		connect(t, broker, "vehicle03"),
		protocol.JSON[unlockRequest]{},
		protocol.JSON[unlockResponse]{},
		requestTopic,
		func(
			_ context.Context,
			req *protocol.CommandRequest[unlockRequest],
		) (*protocol.CommandResponse[unlockResponse], error) {
			if fail.Load() {
				return nil, errors.New("doors jammed")
			}
			require.Equal(t, "mobile-app", req.ClientID)
			require.False(t, req.Timestamp.IsZero())
			require.Equal(t, "mobile-app", req.Payload.RequestedFrom)
			return protocol.Respond(
				unlockResponse{Succeed: true},
				protocol.WithMetadata{"door": "driver"},
			)
		},
		protocol.WithConcurrency(2),
	)
	require.NoError(t, err)
	require.NoError(t, executor.Start(ctx, waitTimeout))
	t.Cleanup(func() { _ = executor.Close(ctx, waitTimeout) })

	invoker, err := protocol.NewCommandInvoker(
		connect(t, broker, "mobile-app"),
		protocol.JSON[unlockRequest]{},
		protocol.JSON[unlockResponse]{},
		requestTopic,
		responseTopic,
	)
	require.NoError(t, err)

	_, err = invoker.Invoke(ctx, unlockRequest{}, waitTimeout)
	require.ErrorIs(t, err, protocol.ErrNotListening)

	require.NoError(t, invoker.Listen(ctx, waitTimeout))
	t.Cleanup(func() { _ = invoker.Close(ctx, waitTimeout) })

	t.Run("Succeed", func(t *testing.T) {
		for range 3 {
			res, err := invoker.Invoke(ctx, unlockRequest{
				When:          time.Now(),
				RequestedFrom: "mobile-app",
			}, waitTimeout)
			require.NoError(t, err)
			require.True(t, res.Payload.Succeed)
			require.Equal(t, "driver", res.Metadata["door"])
			require.Len(t, res.CorrelationData, 16)
		}
	})

	t.Run("Failed", func(t *testing.T) {
		fail.Store(true)
		defer fail.Store(false)

		_, err := invoker.Invoke(ctx, unlockRequest{
			RequestedFrom: "mobile-app",
		}, waitTimeout)
		var re *protocol.RemoteError
		require.ErrorAs(t, err, &re)
		require.Equal(t, "doors jammed", re.Message)
	})
}

func TestCommandTimeout(t *testing.T) {
	ctx := context.Background()
	broker := brokertest.Start(t, false)

	invoker, err := protocol.NewCommandInvoker(
		connect(t, broker, "mobile-app"),
		protocol.JSON[unlockRequest]{},
		protocol.JSON[unlockResponse]{},
		"vehicles/nobody/command/unlock/request",
		"vehicles/nobody/command/unlock/response",
	)
	require.NoError(t, err)
	require.NoError(t, invoker.Listen(ctx, waitTimeout))

	_, err = invoker.Invoke(ctx, unlockRequest{}, 200*time.Millisecond)
	var te *correlation.TimeoutError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "command response", te.Name)
	require.Equal(t, 200*time.Millisecond, te.Timeout)
}

func TestCommandInvalidTopics(t *testing.T) {
	s := mqtt.NewClient(mqtt.TCPConnection("localhost", 1))

	_, err := protocol.NewCommandInvoker(
		s,
		protocol.Raw{},
		protocol.Raw{},
		"vehicles/+/command/unlock/request",
		"response",
	)
	var ce *protocol.ConfigurationError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "requestTopic", ce.Name)

	_, err = protocol.NewCommandExecutor(
		s,
		protocol.Raw{},
		protocol.Raw{},
		"request",
		nil,
	)
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "handler", ce.Name)
}
