// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/wallclock"
)

type (
	// RequestLedger maps the correlation identifiers of outstanding requests
	// to the slots their responses will be delivered into. An identifier may
	// have at most one pending request at a time. A resolved entry stays in
	// the ledger until its handle is closed, so a repeated response is
	// reported as a double resolve rather than an unknown one.
	RequestLedger[V any] struct {
		mu      sync.Mutex
		pending map[string]*slot[V]
	}

	// ResponseHandle is the requesting side of a pending request.
	ResponseHandle[V any] struct {
		ledger *RequestLedger[V]
		id     []byte
		slot   *slot[V]
	}

	// slot is a single-assignment value; done is closed once val is set.
	slot[V any] struct {
		done chan struct{}
		val  V
		set  bool
	}
)

// NewRequestLedger creates an empty ledger.
func NewRequestLedger[V any]() *RequestLedger[V] {
	return &RequestLedger[V]{pending: map[string]*slot[V]{}}
}

// Begin registers a pending request for the correlation identifier.
func (l *RequestLedger[V]) Begin(id []byte) (*ResponseHandle[V], error) {
	if len(id) == 0 {
		return nil, &InvalidArgumentError{
			message: "correlation data must not be empty",
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(id)
	if s, ok := l.pending[key]; ok && !s.set {
		return nil, &DuplicateCorrelationError{CorrelationID: bytes.Clone(id)}
	}

	s := &slot[V]{done: make(chan struct{})}
	l.pending[key] = s
	return &ResponseHandle[V]{l, bytes.Clone(id), s}, nil
}

// Resolve delivers the response for the correlation identifier. The entry is
// kept, marked resolved, until ResponseHandle.Close removes it.
func (l *RequestLedger[V]) Resolve(id []byte, value V) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.pending[string(id)]
	if !ok {
		return &UnknownCorrelationError{CorrelationID: bytes.Clone(id)}
	}
	if s.set {
		return &DoubleResolveError{CorrelationID: bytes.Clone(id)}
	}
	s.val = value
	s.set = true
	close(s.done)
	return nil
}

// Pending returns the number of requests awaiting a response. Resolved
// entries whose handles are still open are not counted.
func (l *RequestLedger[V]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for _, s := range l.pending {
		if !s.set {
			n++
		}
	}
	return n
}

// CorrelationID returns the identifier the request was registered under.
func (h *ResponseHandle[V]) CorrelationID() []byte {
	return bytes.Clone(h.id)
}

// Await blocks until the response is resolved, the timeout elapses or ctx is
// done. On timeout it returns a *TimeoutError and the request stays pending;
// call Close to abandon it.
func (h *ResponseHandle[V]) Await(
	ctx context.Context,
	timeout time.Duration,
) (V, error) {
	var zero V

	select {
	case <-h.slot.done:
		return h.slot.val, nil
	default:
	}

	if timeout <= 0 {
		return zero, &TimeoutError{Name: "response", Timeout: timeout}
	}

	timer := wallclock.Instance.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.slot.done:
		return h.slot.val, nil
	case <-timer.C():
		select {
		case <-h.slot.done:
			return h.slot.val, nil
		default:
			return zero, &TimeoutError{Name: "response", Timeout: timeout}
		}
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}
}

// Close removes the request from the ledger, resolved or not, so a late
// response is reported as unknown. It is safe to call more than once.
func (h *ResponseHandle[V]) Close() {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()

	key := string(h.id)
	if s, ok := h.ledger.pending[key]; ok && s == h.slot {
		delete(h.ledger.pending, key)
	}
}
