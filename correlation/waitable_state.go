// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"context"
	"sync"
	"time"
)

// WaitableState is a single value that goroutines can block on until it
// satisfies a predicate. Every change to the value wakes all waiters, since
// different waiters may be watching for different predicates. The zero value
// holds the zero T and is ready to use.
type WaitableState[T comparable] struct {
	mu  sync.Mutex
	b   broadcast
	val T
}

// NewWaitableState creates a state holding the initial value.
func NewWaitableState[T comparable](initial T) *WaitableState[T] {
	return &WaitableState[T]{val: initial}
}

// Get returns the current value.
func (s *WaitableState[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

// Set assigns the value, waking waiters if it changed.
func (s *WaitableState[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with f applied to the current one, atomically.
// It reports whether the value changed; waiters are only woken if it did.
func (s *WaitableState[T]) Update(f func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := f(s.val)
	if next == s.val {
		return false
	}
	s.val = next
	s.b.notify()
	return true
}

// WaitUntil blocks until pred holds on the current value, the timeout elapses
// or ctx is done, and reports whether pred was satisfied. A predicate that
// already holds returns immediately.
func (s *WaitableState[T]) WaitUntil(
	ctx context.Context,
	pred func(T) bool,
	timeout time.Duration,
) bool {
	_, ok := s.waitFor(ctx, pred, timeout)
	return ok
}

// waitFor is WaitUntil that also returns the value that satisfied pred.
func (s *WaitableState[T]) waitFor(
	ctx context.Context,
	pred func(T) bool,
	timeout time.Duration,
) (T, bool) {
	var seen T
	ok := await(ctx, &s.mu, &s.b, timeout, func() bool {
		seen = s.val
		return pred(seen)
	})
	return seen, ok
}
