// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container_test

import (
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
	"github.com/stretchr/testify/require"
)

func TestExpiryMapTake(t *testing.T) {
	m := container.NewExpiryMap[uint16, string]()
	base := time.Unix(1000, 0)

	m.Set(1, "one", base)
	m.Set(2, "two", base.Add(time.Second))
	require.Equal(t, 2, m.Len())
	require.True(t, m.Has(1))

	v, ok := m.Take(1)
	require.True(t, ok)
	require.Equal(t, "one", v)
	require.False(t, m.Has(1))

	_, ok = m.Take(1)
	require.False(t, ok)
	require.Equal(t, 1, m.Len())
}

func TestExpiryMapExpire(t *testing.T) {
	m := container.NewExpiryMap[int, int]()
	base := time.Unix(1000, 0)

	for i := 5; i > 0; i-- {
		m.Set(i, i*10, base.Add(time.Duration(i)*time.Second))
	}

	// Restamping moves an entry to the back.
	m.Set(1, 11, base.Add(10*time.Second))

	keys := m.Expire(base.Add(4 * time.Second))
	require.Equal(t, []int{2, 3}, keys)
	require.Equal(t, 3, m.Len())
	require.True(t, m.Has(1))
	require.True(t, m.Has(4))

	v, ok := m.Take(1)
	require.True(t, ok)
	require.Equal(t, 11, v)

	require.Empty(t, m.Expire(base))
}
