// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"context"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
)

// broadcast is the condition half of a mutex/condition pair. Waiters take the
// current channel while holding the owner's lock; notify closes it (waking
// every waiter at once) and the next waiter allocates a fresh one. Both
// methods must be called with the owner's lock held.
type broadcast struct{ ch chan struct{} }

func (b *broadcast) channel() <-chan struct{} {
	if b.ch == nil {
		b.ch = make(chan struct{})
	}
	return b.ch
}

func (b *broadcast) notify() {
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}

// await evaluates check under mu, sleeping on b between evaluations, until
// check succeeds, the timeout elapses or ctx is done. Spurious wakeups simply
// cause another evaluation. A non-positive timeout evaluates check exactly
// once. On expiry check is evaluated one final time, so a condition that
// became true at the deadline is still observed.
func await(
	ctx context.Context,
	mu *sync.Mutex,
	b *broadcast,
	timeout time.Duration,
	check func() bool,
) bool {
	mu.Lock()
	if check() {
		mu.Unlock()
		return true
	}
	if timeout <= 0 || ctx.Err() != nil {
		mu.Unlock()
		return false
	}
	wake := b.channel()
	mu.Unlock()

	timer := wallclock.Instance.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-wake:
		case <-timer.C():
			mu.Lock()
			defer mu.Unlock()
			return check()
		case <-ctx.Done():
			return false
		}

		mu.Lock()
		if check() {
			mu.Unlock()
			return true
		}
		wake = b.channel()
		mu.Unlock()
	}
}
