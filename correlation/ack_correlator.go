// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
)

// AckCorrelator holds acknowledgments keyed by the request identifier they
// answer until a waiter claims them. Each acknowledgment is delivered to at
// most one waiter; concurrent waiters on the same key race, and the losers
// see a timeout.
type AckCorrelator[K comparable, V any] struct {
	mu     sync.Mutex
	b      broadcast
	acks   container.ExpiryMap[K, V]
	name   string
	expiry time.Duration
	log    log.Logger
}

// NewAckCorrelator creates an empty correlator.
func NewAckCorrelator[K comparable, V any](
	opt ...Option,
) *AckCorrelator[K, V] {
	var opts Options
	opts.Apply(opt)

	name := opts.Name
	if name == "" {
		name = "ack"
	}
	return &AckCorrelator[K, V]{
		acks:   container.NewExpiryMap[K, V](),
		name:   name,
		expiry: opts.AckExpiry,
		log:    log.Wrap(opts.Logger),
	}
}

// RecordAck stores the acknowledgment for key, replacing any unclaimed one,
// and wakes all waiters.
func (c *AckCorrelator[K, V]) RecordAck(key K, value V) {
	now := wallclock.Instance.Now()

	c.mu.Lock()
	c.acks.Set(key, value, now)
	var evicted []K
	if c.expiry > 0 {
		evicted = c.acks.Expire(now.Add(-c.expiry))
	}
	c.b.notify()
	c.mu.Unlock()

	for _, k := range evicted {
		c.log.Debug(
			context.Background(),
			"evicted unclaimed acknowledgment",
			slog.String("correlator", c.name),
			slog.String("key", fmt.Sprint(k)),
		)
	}
}

// WaitForAck blocks until the acknowledgment for key arrives, the timeout
// elapses or ctx is done. On arrival the acknowledgment is claimed and
// removed. The second result is false if nothing was claimed.
func (c *AckCorrelator[K, V]) WaitForAck(
	ctx context.Context,
	key K,
	timeout time.Duration,
) (V, bool) {
	var zero V
	if !await(ctx, &c.mu, &c.b, timeout, func() bool {
		return c.acks.Has(key)
	}) {
		return zero, false
	}

	c.mu.Lock()
	value, ok := c.acks.Take(key)
	c.mu.Unlock()

	if !ok {
		c.log.Warn(
			ctx,
			"acknowledgment was claimed by another waiter between notification and retrieval",
			slog.String("correlator", c.name),
			slog.String("key", fmt.Sprint(key)),
		)
		return zero, false
	}
	return value, true
}

// WasReceived reports whether an unclaimed acknowledgment for key is held,
// without claiming it.
func (c *AckCorrelator[K, V]) WasReceived(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acks.Has(key)
}

// Len returns the number of unclaimed acknowledgments.
func (c *AckCorrelator[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acks.Len()
}
