// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/stretchr/testify/require"
)

func TestConnectionStatusErrorThenConnect(t *testing.T) {
	ctx := context.Background()
	var s correlation.ConnectionStatus
	refused := errors.New("connection refused")

	require.NoError(t, s.MarkError(refused))
	require.False(t, s.Connected())

	ok, err := s.WaitForConnected(ctx, time.Second)
	require.ErrorIs(t, err, refused)
	require.False(t, ok)

	s.MarkConnected()
	require.NoError(t, s.Err())

	ok, err = s.WaitForConnected(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConnectionStatusMarkError(t *testing.T) {
	var s correlation.ConnectionStatus

	var invalid *correlation.InvalidArgumentError
	require.ErrorAs(t, s.MarkError(nil), &invalid)

	first := errors.New("first")
	second := errors.New("second")
	require.NoError(t, s.MarkError(first))
	require.NoError(t, s.MarkError(second))
	require.Equal(t, first, s.Err())

	s.MarkConnected()
	require.NoError(t, s.MarkError(second))
	require.False(t, s.Connected())
	require.Equal(t, second, s.Err())
}

func TestConnectionStatusDisconnectKeepsError(t *testing.T) {
	var s correlation.ConnectionStatus
	boom := errors.New("boom")

	require.NoError(t, s.MarkError(boom))
	s.MarkDisconnected()
	require.Equal(t, boom, s.Err())
}

func TestConnectionStatusWaitForConnected(t *testing.T) {
	ctx := context.Background()

	t.Run("Timeout", func(t *testing.T) {
		var s correlation.ConnectionStatus
		ok, err := s.WaitForConnected(ctx, 20*time.Millisecond)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ConnectedLater", func(t *testing.T) {
		var s correlation.ConnectionStatus
		go func() {
			time.Sleep(10 * time.Millisecond)
			s.MarkConnected()
		}()
		ok, err := s.WaitForConnected(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("ErrorLater", func(t *testing.T) {
		var s correlation.ConnectionStatus
		boom := errors.New("boom")
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = s.MarkError(boom)
		}()
		ok, err := s.WaitForConnected(ctx, time.Second)
		require.ErrorIs(t, err, boom)
		require.False(t, ok)
	})
}

func TestConnectionStatusWaitForDisconnected(t *testing.T) {
	ctx := context.Background()
	var s correlation.ConnectionStatus

	require.True(t, s.WaitForDisconnected(ctx, 0))

	s.MarkConnected()
	require.False(t, s.WaitForDisconnected(ctx, 10*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.MarkDisconnected()
	}()
	require.True(t, s.WaitForDisconnected(ctx, time.Second))
	require.NoError(t, s.Err())
}
