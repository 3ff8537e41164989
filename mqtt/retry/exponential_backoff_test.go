// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/retry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type Mock struct {
	mock.Mock
}

var errRetryable = errors.New("puback timed out")

func (m *Mock) Task(context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func fast() retry.ExponentialBackoff {
	return retry.ExponentialBackoff{
		MinInterval: time.Millisecond,
		MaxInterval: 4 * time.Millisecond,
	}
}

func TestSucceedsFirstTime(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(false, nil)

	r := fast()
	require.NoError(t, r.Start(context.Background(), "publish", m.Task))
	m.AssertNumberOfCalls(t, "Task", 1)
}

func TestNotRetryable(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(false, errRetryable)

	r := fast()
	require.ErrorIs(t, r.Start(context.Background(), "publish", m.Task), errRetryable)
	m.AssertNumberOfCalls(t, "Task", 1)
}

func TestMaxAttempts(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(true, errRetryable)

	r := fast()
	r.MaxAttempts = 3
	err := r.Start(context.Background(), "publish", m.Task)
	require.EqualError(t, err, errRetryable.Error())
	m.AssertNumberOfCalls(t, "Task", 3)
}

func TestRetryUntilSuccess(t *testing.T) {
	m := new(Mock)
	m.On("Task").Twice().Return(true, errRetryable)
	m.On("Task").Once().Return(false, nil)

	r := fast()
	require.NoError(t, r.Start(context.Background(), "publish", m.Task))
	m.AssertNumberOfCalls(t, "Task", 3)
}

func TestCancelled(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(true, errRetryable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := retry.ExponentialBackoff{MinInterval: time.Hour}
	require.ErrorIs(t, r.Start(ctx, "publish", m.Task), errRetryable)
	m.AssertNumberOfCalls(t, "Task", 1)
}

func TestTimeout(t *testing.T) {
	m := new(Mock)
	m.On("Task").Return(true, errRetryable)

	r := retry.ExponentialBackoff{
		MinInterval: time.Hour,
		Timeout:     20 * time.Millisecond,
	}
	err := r.Start(context.Background(), "publish", m.Task)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	m.AssertNumberOfCalls(t, "Task", 1)
}
