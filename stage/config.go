// Package stage implements the user-facing DSL (spec §4.5): immutable stage
// descriptions composed with Extract, Then, Load, and Combine, compiled
// leaves-first into a runnable Chain when Load terminates it.
package stage

import (
	"log/slog"

	"github.com/oriys/pocketetl/spi"
)

const (
	defaultThreads       = 1
	defaultQueueCapacity = 1000
)

// config holds one stage's immutable configuration. It is generic over the
// stage's declared view type so WithRenderer can carry a type-safe renderer.
type config[T any] struct {
	name          string
	threads       int
	queueCapacity int
	batchLimit    int
	logger        *slog.Logger
	renderer      spi.LogRenderer[T]
}

func newConfig[T any](defaultName string) config[T] {
	return config[T]{
		name:          defaultName,
		threads:       defaultThreads,
		queueCapacity: defaultQueueCapacity,
		logger:        slog.Default(),
	}
}

// Option configures one stage. Options never mutate a previously built
// stage; they're applied in order to a fresh config at construction time.
type Option[T any] func(*config[T])

// WithName sets the stage name used in log lines and metric names.
func WithName[T any](name string) Option[T] {
	return func(c *config[T]) { c.name = name }
}

// WithThreads sets the stage's worker count; at most this many concurrent
// invocations of the user function occur at any instant (invariant 6).
func WithThreads[T any](n int) Option[T] {
	return func(c *config[T]) {
		if n > 0 {
			c.threads = n
		}
	}
}

// WithQueueCapacity overrides the stage's bounded hand-off queue capacity
// (default 1000).
func WithQueueCapacity[T any](capacity int) Option[T] {
	return func(c *config[T]) {
		if capacity > 0 {
			c.queueCapacity = capacity
		}
	}
}

// WithBatchLimit sets the batch size passed to a load stage's loader via
// spi.BatchConfigurable, if it implements that interface (e.g. a DynamoDB
// batch loader); the core itself never reads it, and a loader that doesn't
// batch is unaffected.
func WithBatchLimit[T any](n int) Option[T] {
	return func(c *config[T]) {
		if n > 0 {
			c.batchLimit = n
		}
	}
}

// WithLogger sets the slog.Logger the stage's error sink and close-error
// logging use (slog.Default unless set); nil leaves the current logger in
// place.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *config[T]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRenderer sets the per-record log renderer used by the stage's error
// sink when a user function returns a recoverable error. The default
// renderer reveals only the record's type name, never its content.
func WithRenderer[T any](renderer spi.LogRenderer[T]) Option[T] {
	return func(c *config[T]) {
		if renderer != nil {
			c.renderer = renderer
		}
	}
}

func apply[T any](c config[T], opts []Option[T]) config[T] {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
