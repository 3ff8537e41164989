// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import "time"

type (
	// GeoJSON point; coordinates are longitude then latitude.
	position struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}

	unlockRequest struct {
		When          time.Time `json:"when"`
		RequestedFrom string    `json:"requestedFrom"`
	}

	unlockResponse struct {
		Succeed      bool   `json:"succeed"`
		ErrorDetails string `json:"errorDetails,omitempty"`
	}

	alertType string

	alertMessage struct {
		Type alertType `json:"type"`
		Text string    `json:"alert"`
		Time time.Time `json:"time"`
	}
)

const (
	alertWeather  alertType = "Weather"
	alertTraffic  alertType = "Traffic"
	alertAccident alertType = "Accident"
)

const (
	positionTopic       = "vehicles/%s/position"
	positionFilter      = "vehicles/+/position"
	unlockRequestTopic  = "vehicles/%s/command/unlock/request"
	unlockResponseTopic = "vehicles/%s/command/unlock/response"
	alertTopic          = "vehicles/weather/alert"

	// Alerts older than this are no longer worth delivering.
	alertExpiry = 5 * time.Minute
)
