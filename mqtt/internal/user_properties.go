// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"maps"
	"slices"

	"github.com/eclipse/paho.golang/paho"
)

// UserPropertiesToMap flattens MQTT user properties; later duplicates win.
func UserPropertiesToMap(ups paho.UserProperties) map[string]string {
	if len(ups) == 0 {
		return nil
	}
	m := make(map[string]string, len(ups))
	for _, prop := range ups {
		m[prop.Key] = prop.Value
	}
	return m
}

// MapToUserProperties converts a map to MQTT user properties in key order,
// so the packet contents are deterministic.
func MapToUserProperties(m map[string]string) paho.UserProperties {
	ups := make(paho.UserProperties, 0, len(m))
	for _, key := range slices.Sorted(maps.Keys(m)) {
		ups = append(ups, paho.UserProperty{
			Key:   SanitizeString(key),
			Value: SanitizeString(m[key]),
		})
	}
	return ups
}
