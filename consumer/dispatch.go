package consumer

import (
	"context"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/executor"
	"github.com/oriys/pocketetl/spi"
)

// ExecutorDispatch is where stage parallelism lives (spec §4.3.3): Consume
// submits a task to the stage's worker pool that calls the wrapped
// consumer's Consume; the submission blocks on backpressure. Close shuts
// down the pool (draining in-flight and queued work) before closing the
// wrapped consumer.
type ExecutorDispatch struct {
	pool    executor.Pool
	wrapped RuntimeConsumer
	metrics spi.Metrics
}

// NewExecutorDispatch wraps wrapped so its Consume calls run on pool.
func NewExecutorDispatch(pool executor.Pool, wrapped RuntimeConsumer) *ExecutorDispatch {
	return &ExecutorDispatch{pool: pool, wrapped: wrapped}
}

// Open implements RuntimeConsumer.
func (d *ExecutorDispatch) Open(ctx context.Context, m spi.Metrics) error {
	d.metrics = m
	return d.wrapped.Open(ctx, m)
}

// Consume implements RuntimeConsumer.
func (d *ExecutorDispatch) Consume(ctx context.Context, e envelope.Envelope) error {
	task := func(taskCtx context.Context, m spi.Metrics) error {
		return d.wrapped.Consume(taskCtx, e)
	}
	return d.pool.Submit(ctx, task, d.metrics)
}

// Close implements RuntimeConsumer. It shuts the pool down first so every
// queued record is drained through Consume before the wrapped consumer is
// closed; the wrapped consumer is closed even when a worker recorded an
// unrecoverable failure, and that failure supersedes a clean close.
func (d *ExecutorDispatch) Close() error {
	d.pool.Shutdown()
	if err := d.wrapped.Close(); err != nil {
		return err
	}
	return d.pool.Failure()
}
