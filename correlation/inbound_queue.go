// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"context"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
)

// InboundQueue buffers received messages in arrival order until a consumer
// removes them. Consumers may take the oldest message or the oldest message
// matching a predicate; messages that do not match stay queued in order. The
// queue is unbounded. The zero value is ready to use.
type InboundQueue[M any] struct {
	mu    sync.Mutex
	b     broadcast
	items container.List[M]
}

// Push appends a message and wakes all waiters.
func (q *InboundQueue[M]) Push(msg M) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items.Append(msg)
	q.b.notify()
}

// Len returns the number of queued messages.
func (q *InboundQueue[M]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// WaitForAny reports whether the queue is or becomes non-empty before the
// timeout elapses or ctx is done. It does not remove anything.
func (q *InboundQueue[M]) WaitForAny(
	ctx context.Context,
	timeout time.Duration,
) bool {
	return await(ctx, &q.mu, &q.b, timeout, func() bool {
		return q.items.Len() > 0
	})
}

// PopMatching removes and returns the oldest queued message satisfying pred,
// waiting for one to arrive if none does yet. Every wake rescans the whole
// queue, so a message queued before the call matches immediately. The second
// result is false if the timeout elapsed or ctx was done first.
func (q *InboundQueue[M]) PopMatching(
	ctx context.Context,
	pred func(M) bool,
	timeout time.Duration,
) (M, bool) {
	var found M
	ok := await(ctx, &q.mu, &q.b, timeout, func() bool {
		for n := range q.items.Nodes() {
			if pred(n.Value) {
				found = n.Value
				q.items.Remove(n)
				return true
			}
		}
		return false
	})
	return found, ok
}

// PopNext removes and returns the oldest queued message, waiting for one to
// arrive if the queue is empty.
func (q *InboundQueue[M]) PopNext(
	ctx context.Context,
	timeout time.Duration,
) (M, bool) {
	return q.PopMatching(ctx, func(M) bool { return true }, timeout)
}
