// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Command mqttsamples runs the MQTT application sample scenarios.
//
// Usage:
//
//	mqttsamples [--env-file .env] [--log-level info] <scenario> [flags]
//
// Scenarios:
//
//	getting-started     - connect, subscribe, publish and receive once
//	telemetry-producer  - publish vehicle positions
//	telemetry-consumer  - print vehicle positions
//	command-invoker     - send unlock commands to a vehicle
//	command-executor    - answer unlock commands as a vehicle
//	alert-sender        - broadcast a weather alert as the control tower
//	alert-listener      - print weather alerts as a vehicle
//
// Connection settings are read from MQTT_* variables in the environment and
// the .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
