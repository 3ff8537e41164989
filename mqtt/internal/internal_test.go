// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/internal"
	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/require"
)

func TestDispatcherOrder(t *testing.T) {
	d := internal.NewDispatcher()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		require.True(t, d.Post(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	wg.Wait()

	for i, v := range got {
		require.Equal(t, i, v)
	}

	d.Close()
	<-d.Done()
	require.False(t, d.Post(func() {}))
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	d := internal.NewDispatcher()

	block := make(chan struct{})
	ran := make(chan int, 2)
	d.Post(func() { <-block; ran <- 1 })
	d.Post(func() { ran <- 2 })
	d.Close()

	close(block)
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not drain")
	}
	require.Equal(t, 1, <-ran)
	require.Equal(t, 2, <-ran)
}

func TestRoutes(t *testing.T) {
	var r internal.Routes[string]
	exact := func(filter, topic string) bool { return filter == topic }

	removeA := r.Add("a", "first")
	r.Add("a", "second")
	r.Add("b", "other")

	v, ok := r.Match("a", exact)
	require.True(t, ok)
	require.Equal(t, "first", v)

	removeA()
	removeA()
	v, ok = r.Match("a", exact)
	require.True(t, ok)
	require.Equal(t, "second", v)
	require.Equal(t, 2, r.Len())

	_, ok = r.Match("c", exact)
	require.False(t, ok)
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Valid", "unlock requested", "unlock requested"},
		{"Newline", "unlock\n requested\n", "unlock requested"},
		{"Controls", "unlock\x01 requested\x7F", "unlock requested"},
		{"NonCharacters", "unlock\uFDD0 requested\uFFFE", "unlock requested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, internal.SanitizeString(tt.input))
		})
	}
}

func TestUserProperties(t *testing.T) {
	ups := internal.MapToUserProperties(map[string]string{
		"When":          "2024-01-01T00:00:00Z",
		"RequestedFrom": "mobile\napp",
	})
	require.Equal(t, paho.UserProperties{
		{Key: "RequestedFrom", Value: "mobileapp"},
		{Key: "When", Value: "2024-01-01T00:00:00Z"},
	}, ups)

	m := internal.UserPropertiesToMap(append(ups, paho.UserProperty{
		Key: "When", Value: "later",
	}))
	require.Equal(t, "later", m["When"])
	require.Nil(t, internal.UserPropertiesToMap(nil))
}

func TestRandomClientID(t *testing.T) {
	a := internal.RandomClientID("sample")
	b := internal.RandomClientID("sample")
	require.Len(t, a, 23)
	require.True(t, strings.HasPrefix(a, "sample"))
	require.NotEqual(t, a, b)
}
