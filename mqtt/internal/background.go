// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package internal

import (
	"context"
	"sync"
)

// Background represents the lifetime of a client. Contexts derived from it are
// cancelled with its error once it is closed.
type Background struct {
	err   error
	done  chan struct{}
	close func()
}

// NewBackground creates a background that reports err to contexts cancelled
// by its closure.
func NewBackground(err error) *Background {
	done := make(chan struct{})
	return &Background{err, done, sync.OnceFunc(func() { close(done) })}
}

// With returns a child of ctx that is also cancelled when the background
// closes.
func (b *Background) With(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancelCause(ctx)
	go func() {
		select {
		case <-b.done:
			cancel(b.err)
		case <-c.Done():
		}
	}()
	return c, func() { cancel(context.Canceled) }
}

// Close the background; safe to call more than once.
func (b *Background) Close() {
	b.close()
}

// Done is closed once the background closes.
func (b *Background) Done() <-chan struct{} {
	return b.done
}
