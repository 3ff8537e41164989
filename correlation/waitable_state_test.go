// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/stretchr/testify/require"
)

func TestWaitableStateGetSet(t *testing.T) {
	s := correlation.NewWaitableState(1)
	require.Equal(t, 1, s.Get())

	s.Set(2)
	require.Equal(t, 2, s.Get())

	require.False(t, s.Update(func(v int) int { return v }))
	require.True(t, s.Update(func(v int) int { return v + 1 }))
	require.Equal(t, 3, s.Get())
}

func TestWaitableStateWaitUntil(t *testing.T) {
	ctx := context.Background()

	t.Run("AlreadySatisfied", func(t *testing.T) {
		s := correlation.NewWaitableState("ready")
		require.True(t, s.WaitUntil(ctx, func(v string) bool {
			return v == "ready"
		}, 0))
	})

	t.Run("SatisfiedLater", func(t *testing.T) {
		var s correlation.WaitableState[int]
		go func() {
			time.Sleep(10 * time.Millisecond)
			s.Set(5)
		}()
		require.True(t, s.WaitUntil(ctx, func(v int) bool {
			return v == 5
		}, time.Second))
	})

	t.Run("Timeout", func(t *testing.T) {
		var s correlation.WaitableState[bool]
		start := time.Now()
		require.False(t, s.WaitUntil(ctx, func(v bool) bool {
			return v
		}, 50*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("Cancelled", func(t *testing.T) {
		var s correlation.WaitableState[bool]
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		require.False(t, s.WaitUntil(cctx, func(v bool) bool {
			return v
		}, time.Minute))
	})

	t.Run("IntermediateValuesRewait", func(t *testing.T) {
		var s correlation.WaitableState[int]
		go func() {
			for i := 1; i <= 3; i++ {
				time.Sleep(5 * time.Millisecond)
				s.Set(i)
			}
		}()
		require.True(t, s.WaitUntil(ctx, func(v int) bool {
			return v == 3
		}, time.Second))
	})
}

func TestWaitableStateWakesAllWaiters(t *testing.T) {
	ctx := context.Background()
	var s correlation.WaitableState[int]

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.WaitUntil(ctx, func(v int) bool {
				return v >= 1
			}, time.Second)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	s.Set(1)
	wg.Wait()

	for _, ok := range results {
		require.True(t, ok)
	}
}
