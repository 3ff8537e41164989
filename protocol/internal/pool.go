// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/correlation"
)

// Pool hands values to a handler with a configured maximum concurrency, where
// 0 indicates unlimited concurrency. Submit never blocks, so it is safe to
// call from a transport callback.
type Pool[T any] struct {
	handler func(context.Context, T)
	ctx     context.Context
	cancel  context.CancelFunc
	queue   correlation.InboundQueue[T]
	wg      sync.WaitGroup
	limited bool

	mu     sync.Mutex
	closed bool
}

// forever is the wait used by workers; the pool context ends it.
const forever = time.Duration(math.MaxInt64)

// NewPool starts the workers. The handler context is cancelled by Close.
func NewPool[T any](
	concurrency uint,
	handler func(context.Context, T),
) *Pool[T] {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool[T]{
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		limited: concurrency > 0,
	}

	for range concurrency {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

// Submit queues a value for the handler.
func (p *Pool[T]) Submit(val T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	// For no maximum concurrency, spin up a goroutine for each value.
	if !p.limited {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handler(p.ctx, val)
		}()
		return
	}
	p.queue.Push(val)
}

// Close cancels running handlers, discards queued values and waits for the
// workers to exit.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Pool[T]) work() {
	defer p.wg.Done()
	for {
		val, ok := p.queue.PopNext(p.ctx, forever)
		if !ok {
			return
		}
		p.handler(p.ctx, val)
	}
}
