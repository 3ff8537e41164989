// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/retry"
	"github.com/Azure-Samples/MqttApplicationSamples/protocol"
	"github.com/spf13/cobra"
)

func newTelemetryProducerCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "telemetry-producer",
		Short: "Publish this vehicle's position periodically",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			t, err := connect(ctx, true)
			if err != nil {
				return err
			}
			defer disconnect(t)

			topic := fmt.Sprintf(positionTopic, t.ClientID())
			sender, err := protocol.NewTelemetrySender(
				t,
				protocol.JSON[position]{},
				topic,
				protocol.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}

			// Publishes whose acknowledgment times out are retried.
			backoff := &retry.ExponentialBackoff{
				MaxAttempts: 5,
				MinInterval: 250 * time.Millisecond,
				MaxInterval: 5 * time.Second,
				Logger:      slog.Default(),
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				pos := position{
					Type: "Point",
					Coordinates: [2]float64{
						-122.13 + rand.Float64()/100,
						47.64 + rand.Float64()/100,
					},
				}
				err := backoff.Start(ctx, "send position",
					func(ctx context.Context) (bool, error) {
						err := sender.Send(ctx, pos, operationTimeout)
						var te *correlation.TimeoutError
						return errors.As(err, &te), err
					},
				)
				switch {
				case interrupted(ctx, err):
					return nil
				case err != nil:
					return fmt.Errorf("failed to send position: %w", err)
				}
				slog.Info("position sent",
					slog.String("topic", topic),
					slog.Any("coordinates", pos.Coordinates),
				)

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second,
		"time between position reports")
	return cmd
}

func newTelemetryConsumerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "telemetry-consumer",
		Short: "Print vehicle positions until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// A lost connection is re-established with a fresh session.
			backoff := &retry.ExponentialBackoff{
				MinInterval: time.Second,
				MaxInterval: 30 * time.Second,
				Logger:      slog.Default(),
			}

			for {
				var t mqtt.Transport
				err := backoff.Start(ctx, "connect",
					func(ctx context.Context) (bool, error) {
						var err error
						t, err = connect(ctx, true)
						return retryable(err), err
					},
				)
				switch {
				case interrupted(ctx, err):
					return nil
				case err != nil:
					return err
				}

				err = consume(ctx, t)
				disconnect(t)
				if err != nil || ctx.Err() != nil {
					return err
				}
				slog.Warn("connection lost; reconnecting")
			}
		},
	}
}

// consume prints positions until the context is done or the connection is
// lost. Only setup failures are returned.
func consume(ctx context.Context, t mqtt.Transport) error {
	receiver, err := protocol.NewTelemetryReceiver(
		t,
		protocol.JSON[position]{},
		positionFilter,
		protocol.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	if err := receiver.Start(ctx, operationTimeout); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

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
		slog.Info("position received",
			slog.String("topic", msg.Topic),
			slog.Any("coordinates", msg.Payload.Coordinates),
		)
	}
	return nil
}

// retryable reports whether a failed connect may succeed on another attempt.
// Bad settings and refusals by the broker will not.
func retryable(err error) bool {
	var se *mqtt.SettingError
	var re *mqtt.ConnectionRefusedError
	return !errors.As(err, &se) && !errors.As(err, &re)
}
