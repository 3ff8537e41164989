// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/mqtt311"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

const (
	protocolV5   = "v5"
	protocolV311 = "v311"

	connectTimeout    = 10 * time.Second
	operationTimeout  = 10 * time.Second
	disconnectTimeout = 5 * time.Second
)

var (
	envFile         string
	logLevel        string
	protocolVersion string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "mqttsamples",
		Short:        "MQTT application sample scenarios",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			})))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "",
		"path to the .env file to use (default .env if present)")
	flags.StringVar(&logLevel, "log-level", "info",
		"log level: debug, info, warn or error")
	flags.StringVar(&protocolVersion, "protocol", protocolV5,
		"MQTT protocol version for telemetry scenarios: v5 or v311")

	root.AddCommand(
		newGettingStartedCommand(),
		newTelemetryProducerCommand(),
		newTelemetryConsumerCommand(),
		newCommandInvokerCommand(),
		newCommandExecutorCommand(),
		newAlertSenderCommand(),
		newAlertListenerCommand(),
	)
	return root
}

// connect loads the connection settings, creates the transport the
// --protocol flag selects and waits for it to connect.
func connect(ctx context.Context, allowV311 bool) (mqtt.Transport, error) {
	settings, err := mqtt.LoadConnectionSettings(envFile)
	if err != nil {
		return nil, err
	}
	if !settings.CleanSession {
		return nil, errors.New(
			"this sample does not support connecting with existing sessions",
		)
	}

	provider, err := settings.ConnectionProvider()
	if err != nil {
		return nil, err
	}
	opts := append(
		settings.ClientOptions(),
		mqtt.WithConnectTimeout(connectTimeout),
		mqtt.WithLogger(slog.Default()),
	)

	var t mqtt.Transport
	switch strings.ToLower(protocolVersion) {
	case protocolV5:
		t = mqtt.NewClient(provider, opts...)
	case protocolV311:
		if !allowV311 {
			return nil, errors.New("this scenario requires MQTT v5")
		}
		t = mqtt311.NewClient(provider, opts...)
	default:
		return nil, fmt.Errorf("unknown --protocol %q", protocolVersion)
	}

	slog.Info("connecting",
		slog.String("client_id", t.ClientID()),
		slog.String("host", settings.HostName),
		slog.Int("port", int(settings.TCPPort)),
		slog.String("protocol", protocolVersion),
	)
	if err := mqtt.ConnectAndWait(ctx, t, connectTimeout); err != nil {
		_ = t.Disconnect()
		return nil, fmt.Errorf("%s: failed to connect: %w", t.ClientID(), err)
	}
	return t, nil
}

// disconnect closes the transport, waiting a bounded time for it to report
// the disconnection.
func disconnect(t mqtt.Transport) {
	slog.Info("disconnecting", slog.String("client_id", t.ClientID()))
	if err := mqtt.DisconnectAndWait(t, disconnectTimeout); err != nil {
		slog.Warn("disconnect", slog.String("error", err.Error()))
	}
}

// interrupted reports whether err happened because the scenario was stopped.
func interrupted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
