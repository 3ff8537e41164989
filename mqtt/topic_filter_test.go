// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt_test

import (
	"testing"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/stretchr/testify/require"
)

func TestTopicFilterMatch(t *testing.T) {
	tests := []struct {
		filter   string
		topic    string
		expected bool
	}{
		{"sample/+", "sample/topic1", true},
		{"sample/+", "sample", false},
		{"sample/+", "sample/topic1/extra", false},
		{"vehicles/+/position", "vehicles/car01/position", true},
		{"vehicles/+/position", "vehicles/car01/speed", false},
		{"vehicles/#", "vehicles", true},
		{"vehicles/#", "vehicles/car01/command/unlock/response", true},
		{"$share/fleet/vehicles/+/position", "vehicles/car01/position", true},
		{"$share/fleet", "vehicles/car01/position", false},
		{"#", "$SYS/broker/uptime", false},
		{"$SYS/#", "$SYS/broker/uptime", true},
		{"vehicles/#/position", "vehicles/car01/position", false},
	}

	for _, test := range tests {
		require.Equal(
			t,
			test.expected,
			mqtt.IsTopicFilterMatch(test.filter, test.topic),
			"Topic filter: %s, Topic name: %s",
			test.filter,
			test.topic,
		)
	}
}

func TestTopicPredicates(t *testing.T) {
	msg := &mqtt.Message{Topic: "sample/topic1"}

	require.True(t, mqtt.TopicIs("sample/topic1")(msg))
	require.False(t, mqtt.TopicIs("sample/topic2")(msg))
	require.True(t, mqtt.TopicMatches("sample/+")(msg))
	require.False(t, mqtt.TopicMatches("other/#")(msg))
}
