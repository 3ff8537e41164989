// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
)

// ExponentialBackoff retries a task with exponentially growing pauses between
// attempts, with optional jitter.
type ExponentialBackoff struct {
	// MaxAttempts caps the number of attempts; 0 means unlimited and 1
	// disables retries.
	MaxAttempts uint64

	// MinInterval is the pause after the first failure (before jitter).
	// Defaults to 1/8s.
	MinInterval time.Duration

	// MaxInterval caps the pause between attempts (before jitter). Defaults
	// to 30s.
	MaxInterval time.Duration

	// Timeout bounds all attempts together.
	Timeout time.Duration

	// NoJitter removes the default jitter.
	NoJitter bool

	// Logger receives one record per attempt and one for the outcome.
	Logger *slog.Logger
}

// Start runs the task until it succeeds, declines a retry, runs out of
// attempts or ctx is done, returning the last error.
func (e *ExponentialBackoff) Start(
	ctx context.Context,
	name string,
	task Task,
) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	l := log.Wrap(e.Logger)

	for attempt := uint64(1); ; attempt++ {
		l.Debug(ctx, "attempt",
			slog.String("task", name),
			slog.Uint64("attempt", attempt),
		)

		retry, err := task(ctx)
		if err == nil {
			if attempt > 1 {
				l.Info(ctx, "retry succeeded",
					slog.String("task", name),
					slog.Uint64("attempt", attempt),
				)
			}
			return nil
		}

		interval := e.interval(ctx, attempt, retry)
		if interval == 0 {
			l.Warn(ctx, "giving up",
				slog.String("task", name),
				slog.Uint64("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return err
		}

		l.Info(ctx, "retrying",
			slog.String("task", name),
			slog.Uint64("attempt", attempt),
			slog.Duration("interval", interval),
			slog.String("error", err.Error()),
		)

		timer := wallclock.Instance.NewTimer(interval)
		select {
		case <-timer.C():
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// interval returns the pause before the next attempt, or 0 if there should
// not be one.
func (e *ExponentialBackoff) interval(
	ctx context.Context,
	attempt uint64,
	retry bool,
) time.Duration {
	if !retry || attempt == e.MaxAttempts || ctx.Err() != nil {
		return 0
	}

	minInterval := e.MinInterval
	if minInterval == 0 {
		minInterval = time.Second / 8
	}

	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Second
	}
	maxInterval = max(maxInterval, minInterval)

	factor := math.Pow(2, min(
		float64(attempt-1),
		math.Log2(float64(maxInterval)/float64(minInterval)),
	))
	if !e.NoJitter {
		// Between 95% and 105% of the base.
		// #nosec G404
		factor *= .95 + .1*rand.Float64()
	}

	return time.Duration(factor * float64(minInterval))
}
