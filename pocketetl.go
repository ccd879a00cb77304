// Package pocketetl is an embeddable, in-process batch data-movement
// library. A pipeline is a directed acyclic graph of an extract stage, zero
// or more transform stages, and a terminal load stage, executed
// synchronously: Run returns once every record has been drained and every
// resource released, or fails fast with an UnrecoverableStreamFailure.
//
// The package re-exports the stage package's DSL so callers depend only on
// the module root:
//
//	records := pocketetl.Extract[Input]([]spi.Extractor[Input]{extractor})
//	lowered := pocketetl.Then[Input, Output](records, transformer)
//	done := pocketetl.Load[Output](lowered, loader)
//	err := done.Run(ctx)
package pocketetl

import (
	"log/slog"

	"github.com/oriys/pocketetl/spi"
	"github.com/oriys/pocketetl/stage"
)

// Chain is the compiled pipeline description built by Extract, Then, Load,
// and Combine.
type Chain[T any] = stage.Chain[T]

// Option configures a single stage (WithName, WithThreads, WithLogger,
// WithQueueCapacity, WithBatchLimit, WithRenderer).
type Option[T any] = stage.Option[T]

// Extractor, Transformer, Loader, and Metrics are the abstract collaborators
// a pipeline is built from; concrete implementations live under adapters/.
type (
	Extractor[T any]      = spi.Extractor[T]
	Transformer[I, O any] = spi.Transformer[I, O]
	Loader[T any]         = spi.Loader[T]
	Metrics               = spi.Metrics
)

// NewNoopMetrics returns a Metrics sink that discards everything.
var NewNoopMetrics = spi.NewNoopMetrics

// Extract starts a chain from one or more extractors.
func Extract[T any](extractors []Extractor[T], opts ...Option[T]) *Chain[T] {
	return stage.Extract[T](extractors, opts...)
}

// Then appends a transform stage to an unterminated chain.
func Then[I, O any](c *Chain[I], transformer Transformer[I, O], opts ...Option[I]) *Chain[O] {
	return stage.Then[I, O](c, transformer, opts...)
}

// Load terminates a chain with a loader.
func Load[T any](c *Chain[T], loader Loader[T], opts ...Option[T]) *Chain[T] {
	return stage.Load[T](c, loader, opts...)
}

// Combine fans in two or more chains into one.
func Combine[T any](chains ...*Chain[T]) *Chain[T] {
	return stage.Combine[T](chains...)
}

// WithName sets the stage name used in log lines and metric names.
func WithName[T any](name string) Option[T] { return stage.WithName[T](name) }

// WithThreads sets the stage's worker count.
func WithThreads[T any](n int) Option[T] { return stage.WithThreads[T](n) }

// WithQueueCapacity overrides the stage's bounded hand-off queue capacity.
func WithQueueCapacity[T any](capacity int) Option[T] { return stage.WithQueueCapacity[T](capacity) }

// WithBatchLimit is consulted by adapters that batch records before a
// downstream write; the core itself never reads it.
func WithBatchLimit[T any](n int) Option[T] { return stage.WithBatchLimit[T](n) }

// WithLogger sets the slog.Logger the stage's error sink and close-error
// logging use.
func WithLogger[T any](logger *slog.Logger) Option[T] { return stage.WithLogger[T](logger) }

// WithRenderer sets the per-record log renderer used by the stage's error
// sink.
func WithRenderer[T any](renderer spi.LogRenderer[T]) Option[T] { return stage.WithRenderer[T](renderer) }
