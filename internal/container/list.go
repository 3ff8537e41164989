// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container

import "iter"

type (
	// List is a doubly-linked list supporting O(1) append and removal of
	// arbitrary entries. It is not safe for concurrent use; owners guard it
	// with their own lock.
	List[T any] struct {
		first *Node[T]
		last  *Node[T]
		size  int
	}

	// Node is a handle to an entry of a List.
	Node[T any] struct {
		Value T
		prev  *Node[T]
		next  *Node[T]
		list  *List[T]
	}
)

// Len returns the number of entries.
func (l *List[T]) Len() int {
	return l.size
}

// Append adds a value at the end of the list.
func (l *List[T]) Append(value T) *Node[T] {
	node := &Node[T]{Value: value, prev: l.last, list: l}
	if l.last == nil {
		l.first = node
	} else {
		l.last.next = node
	}
	l.last = node
	l.size++
	return node
}

// Remove unlinks the node. Removing a node twice is a no-op.
func (l *List[T]) Remove(node *Node[T]) {
	if node == nil || node.list != l {
		return
	}

	if node.prev == nil {
		l.first = node.next
	} else {
		node.prev.next = node.next
	}

	if node.next == nil {
		l.last = node.prev
	} else {
		node.next.prev = node.prev
	}

	node.prev, node.next, node.list = nil, nil, nil
	l.size--
}

// Nodes iterates the list from oldest to newest. The node currently yielded
// may be removed during iteration.
func (l *List[T]) Nodes() iter.Seq[*Node[T]] {
	return func(yield func(*Node[T]) bool) {
		for curr := l.first; curr != nil; {
			next := curr.next
			if !yield(curr) {
				return
			}
			curr = next
		}
	}
}

// All iterates the values from oldest to newest.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := range l.Nodes() {
			if !yield(n.Value) {
				return
			}
		}
	}
}
