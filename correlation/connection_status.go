// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"context"
	"time"
)

type (
	// ConnectionStatus tracks whether one transport session is connected and
	// the error, if any, that ended or prevented the connection. Connected
	// always implies no recorded error.
	ConnectionStatus struct {
		state WaitableState[connState]
	}

	connState struct {
		connected bool
		fault     *fault
	}

	// Errors are boxed so that the state stays comparable whatever the
	// dynamic type of the error.
	fault struct{ err error }
)

// Connected reports whether the session is currently connected.
func (s *ConnectionStatus) Connected() bool {
	return s.state.Get().connected
}

// Err returns the recorded connection error, if any.
func (s *ConnectionStatus) Err() error {
	if f := s.state.Get().fault; f != nil {
		return f.err
	}
	return nil
}

// MarkConnected records a successful connection and clears any prior error.
func (s *ConnectionStatus) MarkConnected() {
	s.state.Set(connState{connected: true})
}

// MarkDisconnected records a disconnection, leaving any recorded error as-is.
func (s *ConnectionStatus) MarkDisconnected() {
	s.state.Update(func(cur connState) connState {
		cur.connected = false
		return cur
	})
}

// MarkError records err as the reason the session is not connected. It is a
// no-op if the session is already disconnected with an error recorded.
func (s *ConnectionStatus) MarkError(err error) error {
	if err == nil {
		return &InvalidArgumentError{message: "connection error must not be nil"}
	}
	s.state.Update(func(cur connState) connState {
		if !cur.connected && cur.fault != nil {
			return cur
		}
		return connState{fault: &fault{err}}
	})
	return nil
}

// WaitForConnected blocks until the session connects, an error is recorded,
// the timeout elapses or ctx is done. A recorded error is returned to the
// caller; otherwise the result reports whether the session is connected.
func (s *ConnectionStatus) WaitForConnected(
	ctx context.Context,
	timeout time.Duration,
) (bool, error) {
	cur, ok := s.state.waitFor(ctx, func(st connState) bool {
		return st.connected || st.fault != nil
	}, timeout)
	if !ok {
		return false, nil
	}
	if cur.fault != nil {
		return false, cur.fault.err
	}
	return true, nil
}

// WaitForDisconnected blocks until the session is not connected, the timeout
// elapses or ctx is done, and reports whether it is disconnected.
func (s *ConnectionStatus) WaitForDisconnected(
	ctx context.Context,
	timeout time.Duration,
) bool {
	return s.state.WaitUntil(ctx, func(st connState) bool {
		return !st.connected
	}, timeout)
}
