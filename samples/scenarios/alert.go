// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/protocol"
	"github.com/spf13/cobra"
)

func newAlertSenderCommand() *cobra.Command {
	var (
		kind     string
		text     string
		count    uint
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "alert-sender",
		Short: "Broadcast alerts to every vehicle as the control tower",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			typ, err := parseAlertType(kind)
			if err != nil {
				return err
			}

			t, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer disconnect(t)

			sender, err := protocol.NewTelemetrySender(
				t,
				protocol.JSON[alertMessage]{},
				alertTopic,
				protocol.WithRetain(false),
				protocol.WithMessageExpiry(alertExpiry),
				protocol.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}

			for sent := uint(0); count == 0 || sent < count; sent++ {
				if sent > 0 {
					select {
					case <-time.After(interval):
					case <-ctx.Done():
						return nil
					}
				}

				alert := alertMessage{
					Type: typ,
					Text: text,
					Time: time.Now().UTC(),
				}
				err := sender.Send(ctx, alert, operationTimeout)
				switch {
				case interrupted(ctx, err):
					return nil
				case err != nil:
					return fmt.Errorf("failed to send alert: %w", err)
				}
				slog.Info("alert sent",
					slog.String("type", string(alert.Type)),
					slog.String("alert", alert.Text),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", string(alertWeather),
		"alert type: Weather, Traffic or Accident")
	cmd.Flags().StringVar(&text, "text", "Heavy Rain", "alert text")
	cmd.Flags().UintVar(&count, "count", 1,
		"number of alerts to send; 0 to send until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second,
		"time between alerts")
	return cmd
}

func newAlertListenerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "alert-listener",
		Short: "Print alerts from the control tower until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			t, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer disconnect(t)

			receiver, err := protocol.NewTelemetryReceiver(
				t,
				protocol.JSON[alertMessage]{},
				alertTopic,
				protocol.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}
			if err := receiver.Start(ctx, operationTimeout); err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}

			slog.Info("waiting for alerts", slog.String("topic", alertTopic))
			for t.Session().Status.Connected() {
				msg, err := receiver.Receive(ctx, time.Second)
				var te *correlation.TimeoutError
				var pe *protocol.PayloadError
				switch {
				case ctx.Err() != nil:
					return nil
				case errors.As(err, &te), errors.As(err, &pe):
					continue
				case err != nil:
					return err
				}
				slog.Info("new alert",
					slog.String("type", string(msg.Payload.Type)),
					slog.String("alert", msg.Payload.Text),
					slog.Time("time", msg.Payload.Time),
				)
			}
			return errors.New("connection lost")
		},
	}
}

func parseAlertType(s string) (alertType, error) {
	switch t := alertType(s); t {
	case alertWeather, alertTraffic, alertAccident:
		return t, nil
	default:
		return "", fmt.Errorf("unknown alert type %q", s)
	}
}
