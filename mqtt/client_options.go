// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"log/slog"
	"time"
)

type (
	// Option represents a single client or session option.
	Option interface{ option(*Options) }

	// Options are the resolved client options. Session construction only
	// uses AckExpiry and Logger.
	Options struct {
		ClientID       string
		KeepAlive      uint16
		Username       string
		Password       []byte
		ConnectTimeout time.Duration
		AckExpiry      time.Duration
		Logger         *slog.Logger
	}

	// WithClientID sets the MQTT client identifier. An empty identifier lets
	// the client generate one.
	WithClientID string

	// WithKeepAlive sets the keep-alive interval in seconds.
	WithKeepAlive uint16

	// WithUsername sets the username sent in CONNECT.
	WithUsername string

	// WithPassword sets the password sent in CONNECT.
	WithPassword []byte

	// WithConnectTimeout bounds opening the network connection and waiting
	// for CONNACK.
	WithConnectTimeout time.Duration

	// WithAckExpiry evicts acknowledgments nobody claimed within the given
	// duration.
	WithAckExpiry time.Duration

	// This option is not used directly; see WithLogger below.
	withLogger struct{ *slog.Logger }
)

// DefaultKeepAlive is the keep-alive interval, in seconds, used when none is
// configured.
const DefaultKeepAlive uint16 = 30

// WithLogger enables logging with the provided slog logger.
func WithLogger(logger *slog.Logger) Option {
	return withLogger{logger}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.option(o)
		}
	}
	for _, opt := range rest {
		if opt != nil {
			opt.option(o)
		}
	}
}

// Assign non-nil options.
func (o *Options) option(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithClientID) option(opt *Options) {
	opt.ClientID = string(o)
}

func (o WithKeepAlive) option(opt *Options) {
	opt.KeepAlive = uint16(o)
}

func (o WithUsername) option(opt *Options) {
	opt.Username = string(o)
}

func (o WithPassword) option(opt *Options) {
	opt.Password = []byte(o)
}

func (o WithConnectTimeout) option(opt *Options) {
	opt.ConnectTimeout = time.Duration(o)
}

func (o WithAckExpiry) option(opt *Options) {
	opt.AckExpiry = time.Duration(o)
}

func (o withLogger) option(opt *Options) {
	opt.Logger = o.Logger
}
