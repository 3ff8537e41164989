// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import "context"

type (
	// Task is one attempt of a retried operation. It reports whether a
	// failure is worth another attempt.
	Task = func(context.Context) (shouldRetry bool, err error)

	// Policy decides how often and how far apart attempts are made.
	Policy interface {
		Start(ctx context.Context, name string, task Task) error
	}
)
