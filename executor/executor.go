// Package executor implements the bounded-queue worker pool every pipeline
// stage dispatches its per-record work through (spec §4.2).
//
// Two variants exist. Fixed is a fixed-size pool of N workers draining a
// buffered channel of capacity Q: Submit blocks the caller once the channel
// is full, which is the pipeline's sole backpressure primitive. Immediate
// runs its task inline on the calling goroutine and never queues; it backs
// the per-stage error sink so a failing record is never further delayed by
// another stage's backpressure.
//
// Neither variant classifies errors. A task returns a non-nil error only
// when it represents an unrecoverable stream failure (recoverable record
// errors are fully handled, and swallowed, inside the task itself); Fixed
// records the first such error and fails every subsequent Submit with it,
// which is how an abort raised on one worker stops the stage from accepting
// more work without a cooperative cancellation token.
package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/oriys/pocketetl/spi"
)

// ErrShutdown is returned by Submit once the pool has been shut down.
var ErrShutdown = errors.New("executor: submit after shutdown")

// Task is a unit of dispatched work. m is the metrics scope owning the
// stage that submitted the task, so work executed off the calling
// goroutine still attributes to the right scope.
type Task func(ctx context.Context, m spi.Metrics) error

// Pool is a worker pool that runs submitted Tasks.
type Pool interface {
	// Submit enqueues task, blocking while the pool is at capacity. It
	// returns ErrShutdown if the pool has been shut down, or the pool's
	// recorded Failure if one has already occurred.
	Submit(ctx context.Context, task Task, m spi.Metrics) error
	// Shutdown stops accepting new tasks and waits for in-flight and
	// queued tasks to finish. It is idempotent.
	Shutdown()
	// IsShutdown reports whether Shutdown has been called; queued tasks may
	// still be draining.
	IsShutdown() bool
	// Failure returns the first error returned by any task, or nil.
	Failure() error
}

type job struct {
	task Task
	m    spi.Metrics
}

// Fixed is the bounded-queue, N-worker pool used by every pipeline stage.
type Fixed struct {
	jobs chan job
	wg   sync.WaitGroup

	mu       sync.Mutex
	shutdown bool

	failOnce sync.Once
	failErr  atomic.Pointer[error]
}

// NewFixed starts workers workers draining a queue of capacity queueCapacity.
// workers and queueCapacity are both normalized to at least 1.
func NewFixed(workers, queueCapacity int) *Fixed {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	p := &Fixed{jobs: make(chan job, queueCapacity)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Fixed) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.task(context.Background(), j.m); err != nil {
			p.recordFailure(err)
		}
	}
}

func (p *Fixed) recordFailure(err error) {
	p.failOnce.Do(func() {
		p.failErr.Store(&err)
	})
}

// Failure returns the first error recorded by a worker, or nil.
func (p *Fixed) Failure() error {
	if e := p.failErr.Load(); e != nil {
		return *e
	}
	return nil
}

// Submit implements Pool.
func (p *Fixed) Submit(ctx context.Context, task Task, m spi.Metrics) error {
	if p.IsShutdown() {
		return ErrShutdown
	}
	if err := p.Failure(); err != nil {
		return err
	}
	select {
	case p.jobs <- job{task: task, m: m}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown implements Pool.
func (p *Fixed) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// IsShutdown implements Pool.
func (p *Fixed) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// Immediate runs every task synchronously on the calling goroutine.
type Immediate struct {
	mu       sync.Mutex
	shutdown bool
}

// NewImmediate returns a Pool that never queues.
func NewImmediate() *Immediate { return &Immediate{} }

// Submit implements Pool by calling task inline.
func (p *Immediate) Submit(ctx context.Context, task Task, m spi.Metrics) error {
	if p.IsShutdown() {
		return ErrShutdown
	}
	return task(ctx, m)
}

// Shutdown implements Pool.
func (p *Immediate) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
}

// IsShutdown implements Pool.
func (p *Immediate) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// Failure always returns nil: an Immediate pool has no asynchronous worker
// to record a failure on behalf of.
func (p *Immediate) Failure() error { return nil }
