// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/protocol"
	"github.com/spf13/cobra"
)

func newCommandInvokerCommand() *cobra.Command {
	var (
		target   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "command-invoker",
		Short: "Send unlock commands to a vehicle periodically",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			t, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer disconnect(t)

			invoker, err := protocol.NewCommandInvoker(
				t,
				protocol.JSON[unlockRequest]{},
				protocol.JSON[unlockResponse]{},
				fmt.Sprintf(unlockRequestTopic, target),
				fmt.Sprintf(unlockResponseTopic, target),
				protocol.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}
			if err := invoker.Listen(ctx, operationTimeout); err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}
			defer func() {
				_ = invoker.Close(context.Background(), operationTimeout)
			}()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				slog.Info("sending unlock request", slog.String("target", target))
				res, err := invoker.Invoke(ctx, unlockRequest{
					When:          time.Now().UTC(),
					RequestedFrom: t.ClientID(),
				}, operationTimeout)
				switch {
				case interrupted(ctx, err):
					return nil
				case err != nil:
					slog.Error("unlock failed", slog.String("error", err.Error()))
				default:
					slog.Info("unlock response",
						slog.Bool("succeed", res.Payload.Succeed),
						slog.Time("when", res.Timestamp),
					)
				}

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&target, "target", "vehicle03",
		"client id of the vehicle to unlock")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second,
		"time between unlock requests")
	return cmd
}

func newCommandExecutorCommand() *cobra.Command {
	var concurrency uint

	cmd := &cobra.Command{
		Use:   "command-executor",
		Short: "Answer unlock commands addressed to this vehicle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			t, err := connect(ctx, false)
			if err != nil {
				return err
			}
			defer disconnect(t)

			executor, err := protocol.NewCommandExecutor(
				t,
				protocol.JSON[unlockRequest]{},
				protocol.JSON[unlockResponse]{},
				fmt.Sprintf(unlockRequestTopic, t.ClientID()),
				unlock,
				protocol.WithConcurrency(concurrency),
				protocol.WithTimeout(operationTimeout),
				protocol.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}
			if err := executor.Start(ctx, operationTimeout); err != nil {
				return fmt.Errorf("failed to subscribe: %w", err)
			}
			defer func() {
				_ = executor.Close(context.Background(), operationTimeout)
			}()

			slog.Info("waiting for unlock requests")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().UintVar(&concurrency, "concurrency", 4,
		"number of requests handled in parallel; 0 for unlimited")
	return cmd
}

func unlock(
	_ context.Context,
	req *protocol.CommandRequest[unlockRequest],
) (*protocol.CommandResponse[unlockResponse], error) {
	slog.Warn("received unlock request",
		slog.String("from", req.Payload.RequestedFrom),
		slog.Time("when", req.Payload.When),
	)
	return protocol.Respond(unlockResponse{Succeed: true})
}
