// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package correlation

import (
	"log/slog"
	"time"
)

type (
	// Option represents a single option for the correlation primitives.
	Option interface{ apply(*Options) }

	// Options are the resolved options for the correlation primitives.
	Options struct {
		Name      string
		AckExpiry time.Duration
		Logger    *slog.Logger
	}

	// WithName labels the primitive in log output.
	WithName string

	// WithAckExpiry evicts acknowledgments that nobody claimed within the
	// given duration. Without it unclaimed acknowledgments are kept forever.
	WithAckExpiry time.Duration

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}
	for _, opt := range rest {
		if opt != nil {
			opt.apply(o)
		}
	}
}

func (o *Options) apply(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithName) apply(opt *Options) {
	opt.Name = string(o)
}

func (o WithAckExpiry) apply(opt *Options) {
	opt.AckExpiry = time.Duration(o)
}

func (o withLogger) apply(opt *Options) {
	opt.Logger = o.Logger
}
