// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container_test

import (
	"slices"
	"testing"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
	"github.com/stretchr/testify/require"
)

func TestListAppendRemove(t *testing.T) {
	var l container.List[int]

	n1 := l.Append(1)
	n2 := l.Append(2)
	n3 := l.Append(3)
	require.Equal(t, []int{1, 2, 3}, slices.Collect(l.All()))

	l.Remove(n2)
	require.Equal(t, []int{1, 3}, slices.Collect(l.All()))

	l.Remove(n2)
	require.Equal(t, 2, l.Len())

	l.Remove(n1)
	l.Remove(n3)
	require.Zero(t, l.Len())
	require.Empty(t, slices.Collect(l.All()))

	l.Append(4)
	require.Equal(t, []int{4}, slices.Collect(l.All()))
}

func TestListRemoveDuringIteration(t *testing.T) {
	var l container.List[int]
	for i := range 6 {
		l.Append(i)
	}

	for n := range l.Nodes() {
		if n.Value%2 == 0 {
			l.Remove(n)
		}
	}
	require.Equal(t, []int{1, 3, 5}, slices.Collect(l.All()))
}
