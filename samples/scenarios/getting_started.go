// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"fmt"
	"log/slog"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/spf13/cobra"
)

func newGettingStartedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getting-started",
		Short: "Connect, subscribe to sample/+, publish and receive one message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			t, err := connect(ctx, true)
			if err != nil {
				return err
			}
			defer disconnect(t)

			qos, err := mqtt.SubscribeAndWait(
				ctx, t, "sample/+", 1, operationTimeout,
			)
			if err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}
			slog.Info("subscribed",
				slog.String("topic_filter", "sample/+"),
				slog.Int("granted_qos", int(qos)),
			)

			err = mqtt.PublishAndWait(
				ctx, t, "sample/topic1", []byte("hello world!"),
				operationTimeout, mqtt.WithQoS(1),
			)
			if err != nil {
				return fmt.Errorf("failed to publish: %w", err)
			}

			msg, err := mqtt.ReceiveAndWait(
				ctx, t, "sample/topic1", operationTimeout,
			)
			if err != nil {
				return fmt.Errorf("no message received: %w", err)
			}
			slog.Info("received message",
				slog.String("topic", msg.Topic),
				slog.String("payload", string(msg.Payload)),
			)
			return nil
		},
	}
}
