// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"sync"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
)

// Dispatcher runs posted events one at a time, in the order they were posted,
// on a single goroutine. It stands in for the single callback thread of a
// transport whose library delivers events from many goroutines.
type Dispatcher struct {
	mu      sync.Mutex
	pending container.List[func()]
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

// NewDispatcher starts the callback goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Post queues an event. It never blocks, and returns false once the
// dispatcher has been closed.
func (d *Dispatcher) Post(event func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.pending.Append(event)

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting events. Events already posted still run; Done is
// closed after the last of them.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the dispatcher has been closed and drained.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		var event func()
		for n := range d.pending.Nodes() {
			event = n.Value
			d.pending.Remove(n)
			break
		}
		closed := d.closed
		d.mu.Unlock()

		if event != nil {
			event()
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}
