// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container

import (
	"container/heap"
	"time"
)

type (
	// ExpiryMap is a map whose entries remember when they were stored, with a
	// built-in min-heap so the oldest entries can be trimmed cheaply. It is
	// not safe for concurrent use.
	ExpiryMap[K comparable, V any] struct {
		q expiryQueue[K, V]
		m map[K]*entry[K, V]
	}

	// https://pkg.go.dev/container/heap#example-package-PriorityQueue
	expiryQueue[K comparable, V any] []*entry[K, V]

	entry[K comparable, V any] struct {
		key K
		val V
		at  time.Time
		idx int
	}
)

func (q expiryQueue[K, V]) Len() int {
	return len(q)
}

func (q expiryQueue[K, V]) Less(i, j int) bool {
	return q[i].at.Before(q[j].at)
}

func (q expiryQueue[K, V]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].idx = i
	q[j].idx = j
}

func (q *expiryQueue[K, V]) Push(v any) {
	//nolint:forcetypeassert // The type is guaranteed by the implementation.
	e := v.(*entry[K, V])
	e.idx = len(*q)
	*q = append(*q, e)
}

func (q *expiryQueue[K, V]) Pop() any {
	o := *q
	n := len(o)
	e := o[n-1]
	o[n-1] = nil
	*q = o[0 : n-1]
	return e
}

// NewExpiryMap creates a new empty map.
func NewExpiryMap[K comparable, V any]() ExpiryMap[K, V] {
	return ExpiryMap[K, V]{m: map[K]*entry[K, V]{}}
}

// Len returns the number of entries.
func (m *ExpiryMap[K, V]) Len() int {
	return len(m.q)
}

// Has reports whether the key is present.
func (m *ExpiryMap[K, V]) Has(key K) bool {
	_, ok := m.m[key]
	return ok
}

// Set stores the value under the key, replacing any existing entry and
// restamping it with the given time.
func (m *ExpiryMap[K, V]) Set(key K, val V, at time.Time) {
	if e, ok := m.m[key]; ok {
		e.val = val
		e.at = at
		heap.Fix(&m.q, e.idx)
		return
	}
	e := &entry[K, V]{key: key, val: val, at: at}
	m.m[key] = e
	heap.Push(&m.q, e)
}

// Take removes the entry for the key and returns its value.
func (m *ExpiryMap[K, V]) Take(key K) (V, bool) {
	e, ok := m.m[key]
	if !ok {
		var zv V
		return zv, false
	}
	heap.Remove(&m.q, e.idx)
	delete(m.m, key)
	return e.val, true
}

// Expire removes every entry stored strictly before the cutoff and returns
// their keys, oldest first.
func (m *ExpiryMap[K, V]) Expire(cutoff time.Time) []K {
	var keys []K
	for len(m.q) > 0 && m.q[0].at.Before(cutoff) {
		//nolint:forcetypeassert // The type is guaranteed by the implementation.
		e := heap.Pop(&m.q).(*entry[K, V])
		delete(m.m, e.key)
		keys = append(keys, e.key)
	}
	return keys
}
