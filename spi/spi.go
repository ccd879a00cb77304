// Package spi defines the abstract collaborators a pocketetl pipeline
// consumes: extractors, transformers, loaders, and the metrics sink. The
// core never imports a concrete adapter; adapters/* implement these
// interfaces against real systems (S3, Postgres, Redis, ...).
package spi

import (
	"context"
	"fmt"
)

// Extractor pulls records of type T from an upstream source. Next returns
// ok=false to signal end-of-stream. Returning an *UnrecoverableStreamFailure
// aborts the owning producer's pull loop; any other error is logged and the
// loop continues with the next call to Next.
type Extractor[T any] interface {
	Open(m Metrics) error
	Next(ctx context.Context) (value T, ok bool, err error)
	Close() error
}

// Transformer maps one input record to zero or more output records.
// Returning an *UnrecoverableStreamFailure aborts the pipeline; any other
// error routes the input record to the stage's error sink.
type Transformer[I, O any] interface {
	Open(m Metrics) error
	Transform(ctx context.Context, in I) ([]O, error)
	Close() error
}

// Loader persists a single record. Returning an *UnrecoverableStreamFailure
// aborts the pipeline; any other error routes the record to the stage's
// error sink.
type Loader[T any] interface {
	Open(m Metrics) error
	Load(ctx context.Context, v T) error
	Close() error
}

// LogRenderer renders a value for the error sink's log line. The zero value
// of a renderer is never called directly; DefaultRenderer is substituted
// when a stage is not given one, and it never reveals payload content.
type LogRenderer[T any] func(v T) string

// DefaultRenderer renders only the type name of v, never its content, so a
// misconfigured stage that forgets to set a logger cannot leak payload data
// into logs (spec §3, §4.3.6).
func DefaultRenderer[T any](v T) string {
	return fmt.Sprintf("%T", v)
}

// BatchConfigurable is implemented by a Loader that batches records before a
// downstream write (e.g. a DynamoDB batch loader). A stage built with
// WithBatchLimit calls SetBatchLimit once, before Open, on any configured
// loader that implements this interface; loaders that don't batch simply
// don't implement it and the option has no effect on them.
type BatchConfigurable interface {
	SetBatchLimit(n int)
}

// NoopLifecycle can be embedded in an Extractor, Transformer, or Loader that
// has no resources to acquire or release, giving it free no-op Open/Close
// methods.
type NoopLifecycle struct{}

// Open is a no-op.
func (NoopLifecycle) Open(Metrics) error { return nil }

// Close is a no-op.
func (NoopLifecycle) Close() error { return nil }

// Metrics is the abstract sink every stage reports through. The core only
// calls these methods; aggregation policy belongs to the sink.
type Metrics interface {
	AddCount(name string, value int64)
	AddTime(name string, ms float64)
	CreateChildMetrics() Metrics
	Close()
}

type noopMetrics struct{}

// NewNoopMetrics returns a Metrics sink that discards everything. Run and
// RunContext substitute it automatically when called with a nil sink.
func NewNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) AddCount(string, int64)      {}
func (noopMetrics) AddTime(string, float64)     {}
func (noopMetrics) CreateChildMetrics() Metrics { return noopMetrics{} }
func (noopMetrics) Close()                      {}
