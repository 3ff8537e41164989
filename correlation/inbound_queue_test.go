// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation_test

import (
	"context"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/stretchr/testify/require"
)

type message struct {
	topic   string
	payload string
}

func topicIs(topic string) func(message) bool {
	return func(m message) bool { return m.topic == topic }
}

func TestInboundQueuePreservesOrder(t *testing.T) {
	ctx := context.Background()
	var q correlation.InboundQueue[message]

	q.Push(message{"a", "A"})
	q.Push(message{"b", "B"})
	q.Push(message{"c", "C"})

	m, ok := q.PopMatching(ctx, topicIs("c"), 0)
	require.True(t, ok)
	require.Equal(t, "C", m.payload)

	m, ok = q.PopNext(ctx, 0)
	require.True(t, ok)
	require.Equal(t, "A", m.payload)

	m, ok = q.PopNext(ctx, 0)
	require.True(t, ok)
	require.Equal(t, "B", m.payload)

	require.Zero(t, q.Len())
}

func TestInboundQueueOldestMatchFirst(t *testing.T) {
	ctx := context.Background()
	var q correlation.InboundQueue[message]

	q.Push(message{"x", "1"})
	q.Push(message{"y", "2"})
	q.Push(message{"x", "3"})

	m, ok := q.PopMatching(ctx, topicIs("x"), time.Second)
	require.True(t, ok)
	require.Equal(t, "1", m.payload)

	m, ok = q.PopMatching(ctx, topicIs("x"), time.Second)
	require.True(t, ok)
	require.Equal(t, "3", m.payload)
	require.Equal(t, 1, q.Len())
}

func TestInboundQueueWaitsForMatch(t *testing.T) {
	ctx := context.Background()
	var q correlation.InboundQueue[message]

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(message{"other", "ignored"})
		time.Sleep(10 * time.Millisecond)
		q.Push(message{"wanted", "found"})
	}()

	m, ok := q.PopMatching(ctx, topicIs("wanted"), time.Second)
	require.True(t, ok)
	require.Equal(t, "found", m.payload)

	m, ok = q.PopNext(ctx, 0)
	require.True(t, ok)
	require.Equal(t, "ignored", m.payload)
}

func TestInboundQueueTimeout(t *testing.T) {
	ctx := context.Background()
	var q correlation.InboundQueue[message]

	q.Push(message{"other", ""})

	start := time.Now()
	_, ok := q.PopMatching(ctx, topicIs("wanted"), 30*time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Equal(t, 1, q.Len())
}

func TestInboundQueueWaitForAny(t *testing.T) {
	ctx := context.Background()
	var q correlation.InboundQueue[message]

	require.False(t, q.WaitForAny(ctx, 10*time.Millisecond))

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(message{"t", "p"})
	}()
	require.True(t, q.WaitForAny(ctx, time.Second))
	require.Equal(t, 1, q.Len())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, ok := q.PopMatching(cctx, topicIs("none"), time.Second)
	require.False(t, ok)
}
