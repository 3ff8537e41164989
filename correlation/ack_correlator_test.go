// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/stretchr/testify/require"
)

func TestAckCorrelatorTimeout(t *testing.T) {
	c := correlation.NewAckCorrelator[uint16, uint16]()

	start := time.Now()
	_, ok := c.WaitForAck(context.Background(), 7, 50*time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestAckCorrelatorClaimOnce(t *testing.T) {
	ctx := context.Background()
	c := correlation.NewAckCorrelator[uint16, []int]()

	c.RecordAck(1, []int{0})
	require.True(t, c.WasReceived(1))
	require.True(t, c.WasReceived(1))

	v, ok := c.WaitForAck(ctx, 1, time.Second)
	require.True(t, ok)
	require.Equal(t, []int{0}, v)
	require.False(t, c.WasReceived(1))

	_, ok = c.WaitForAck(ctx, 1, 10*time.Millisecond)
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestAckCorrelatorWaitBeforeRecord(t *testing.T) {
	ctx := context.Background()
	c := correlation.NewAckCorrelator[uint16, uint16]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.RecordAck(2, 2)
		c.RecordAck(3, 3)
	}()

	v, ok := c.WaitForAck(ctx, 3, time.Second)
	require.True(t, ok)
	require.Equal(t, uint16(3), v)

	// The other ack is left for its own waiter.
	require.True(t, c.WasReceived(2))
}

func TestAckCorrelatorConcurrentWaiters(t *testing.T) {
	ctx := context.Background()
	c := correlation.NewAckCorrelator[uint16, uint16]()

	var wg sync.WaitGroup
	claimed := make(chan uint16, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, ok := c.WaitForAck(ctx, 9, 100*time.Millisecond); ok {
				claimed <- v
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	c.RecordAck(9, 9)
	wg.Wait()
	close(claimed)

	var n int
	for range claimed {
		n++
	}
	require.Equal(t, 1, n)
}

func TestAckCorrelatorExpiry(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	c := correlation.NewAckCorrelator[uint16, uint16](
		correlation.WithName("puback"),
		correlation.WithAckExpiry(5*time.Millisecond),
		correlation.WithLogger(logger),
	)

	c.RecordAck(1, 1)
	time.Sleep(20 * time.Millisecond)
	c.RecordAck(2, 2)

	require.False(t, c.WasReceived(1))
	require.True(t, c.WasReceived(2))
	require.Contains(t, buf.String(), "evicted unclaimed acknowledgment")
	require.Contains(t, buf.String(), "correlator=puback")
}
