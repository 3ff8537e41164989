// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"sync"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/container"
)

// Routes is an ordered table of values keyed by topic filter. Entries may be
// removed through the function returned when they were added.
type Routes[T any] struct {
	mu    sync.RWMutex
	table container.List[route[T]]
}

type route[T any] struct {
	filter string
	value  T
}

// Add appends a route and returns a function removing it again.
func (r *Routes[T]) Add(filter string, value T) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node := r.table.Append(route[T]{filter, value})
	return sync.OnceFunc(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.table.Remove(node)
	})
}

// Match returns the value of the oldest route whose filter matches the topic
// according to match.
func (r *Routes[T]) Match(
	topic string,
	match func(filter, topic string) bool,
) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for rt := range r.table.All() {
		if match(rt.filter, topic) {
			return rt.value, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of routes.
func (r *Routes[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Len()
}
