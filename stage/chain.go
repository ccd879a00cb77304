package stage

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oriys/pocketetl/consumer"
	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/internal/logging"
	"github.com/oriys/pocketetl/producer"
	"github.com/oriys/pocketetl/spi"
)

// runtimeConsumer is the narrow view stage needs of consumer.RuntimeConsumer,
// declared locally so stage doesn't force its callers to import consumer
// just to name the type.
type runtimeConsumer interface {
	Open(ctx context.Context, m spi.Metrics) error
	Consume(ctx context.Context, e envelope.Envelope) error
	Close() error
}

// branch builds one producer, given the shared downstream consumer every
// unterminated branch of a chain will eventually be wired to.
type branch func(downstream runtimeConsumer) (producer.RuntimeProducer, error)

// Chain is the compiled description of a pipeline: one or more producer
// branches, optionally terminated by a loader (spec §3 "stage chain").
// T is the declared view type at the current tip of the chain; it is a
// compile-time aid only; the runtime wiring underneath is type-erased to
// envelope.Envelope.
//
// Per design note 9b, a chain produced by Combine keeps terminated
// component chains ("sealedProducers") and unterminated ones ("branches")
// distinct: adding a further stage only extends the unterminated branches,
// leaving already-terminated ones untouched.
type Chain[T any] struct {
	name            string
	branches        []branch
	sealedProducers []producer.RuntimeProducer
	sealed          bool
	err             error
	recordsIn       []*atomic.Int64
	recordsOut      []*atomic.Int64
}

func (c *Chain[T]) fail(err error) *Chain[T] {
	if c.err == nil {
		c.err = err
	}
	return c
}

// Err reports a misuse error recorded while building the chain (e.g.
// Extract called with no extractors, Combine called with fewer than two
// chains, or a stage added after termination). Run and RunContext surface
// the same error; Err lets a caller check without running.
func (c *Chain[T]) Err() error { return c.err }

// Extract starts a chain from one or more extractors (spec: `extract(e)`,
// `extract(e1, e2, ...)`). Each extractor becomes its own branch; Combine
// later flattens branches from multiple chains rather than nesting fan-ins.
func Extract[T any](extractors []spi.Extractor[T], opts ...Option[T]) *Chain[T] {
	if len(extractors) == 0 {
		return (&Chain[T]{}).fail(spi.ErrNoExtractors)
	}
	cfg := apply(newConfig[T]("extract"), opts)
	recordsIn := &atomic.Int64{}
	branches := make([]branch, 0, len(extractors))
	for i, ex := range extractors {
		ex := ex
		name := cfg.name
		if len(extractors) > 1 {
			name = fmt.Sprintf("%s[%d]", cfg.name, i)
		}
		branches = append(branches, func(downstream runtimeConsumer) (producer.RuntimeProducer, error) {
			pull := producer.NewExtractorPull[T](name, ex, downstream, cfg.logger)
			pull.CountInto(recordsIn)
			return pull, nil
		})
	}
	return &Chain[T]{name: cfg.name, branches: branches, recordsIn: []*atomic.Int64{recordsIn}}
}

// Then appends a transform stage to an unterminated chain, changing its
// declared view type from I to O. Go has no generic methods beyond a type's
// own parameters, so Then is a package-level function rather than a
// Chain[I] method.
func Then[I, O any](c *Chain[I], transformer spi.Transformer[I, O], opts ...Option[I]) *Chain[O] {
	if c.err != nil {
		return (&Chain[O]{}).fail(c.err)
	}
	if c.sealed {
		return (&Chain[O]{}).fail(spi.ErrAlreadyTerminated)
	}
	cfg := apply(newConfig[I]("transform"), opts)
	branches := make([]branch, 0, len(c.branches))
	for _, upstream := range c.branches {
		upstream := upstream
		branches = append(branches, func(downstream runtimeConsumer) (producer.RuntimeProducer, error) {
			errSink := consumer.NewErrorSink[I](cfg.name, cfg.renderer, cfg.logger)
			leaf := consumer.NewTransformerFanout[I, O](cfg.name, transformer, downstream, errSink)
			wrapped := consumer.WrapStage(cfg.name, leaf, cfg.threads, cfg.queueCapacity)
			return upstream(wrapped)
		})
	}
	return &Chain[O]{
		name:            cfg.name,
		branches:        branches,
		sealedProducers: c.sealedProducers,
		recordsIn:       c.recordsIn,
		recordsOut:      c.recordsOut,
	}
}

// Load terminates a chain with a loader (spec: `.then(load(T, l))`). The
// resulting chain is terminated and may be Run.
func Load[T any](c *Chain[T], loader spi.Loader[T], opts ...Option[T]) *Chain[T] {
	if c.err != nil {
		return c
	}
	if c.sealed {
		return c.fail(spi.ErrAlreadyTerminated)
	}
	cfg := apply(newConfig[T]("load"), opts)
	if cfg.batchLimit > 0 {
		if bc, ok := loader.(spi.BatchConfigurable); ok {
			bc.SetBatchLimit(cfg.batchLimit)
		}
	}
	sealedProducers := make([]producer.RuntimeProducer, 0, len(c.branches)+len(c.sealedProducers))
	sealedProducers = append(sealedProducers, c.sealedProducers...)
	recordsOut := c.recordsOut

	if len(c.branches) > 0 {
		errSink := consumer.NewErrorSink[T](cfg.name, cfg.renderer, cfg.logger)
		leaf := consumer.NewLoaderLeaf[T](cfg.name, loader, errSink)
		counter := &atomic.Int64{}
		leaf.CountInto(counter)
		recordsOut = append(append([]*atomic.Int64{}, recordsOut...), counter)
		shared := consumer.WrapStage(cfg.name, leaf, cfg.threads, cfg.queueCapacity)
		for _, upstream := range c.branches {
			p, err := upstream(shared)
			if err != nil {
				return c.fail(err)
			}
			sealedProducers = append(sealedProducers, p)
		}
	}

	return &Chain[T]{
		name:            cfg.name,
		sealedProducers: sealedProducers,
		sealed:          true,
		recordsIn:       c.recordsIn,
		recordsOut:      recordsOut,
	}
}

// Combine fans in two or more chains into one (spec: `combine(s1, s2, ...)`
// and design note 9b). The combined chain's branches are the concatenation
// of its inputs' unterminated branches; already-terminated inputs
// contribute their sealed producers untouched and are not reachable by any
// further Then/Load on the result.
func Combine[T any](chains ...*Chain[T]) *Chain[T] {
	if len(chains) < 2 {
		return (&Chain[T]{}).fail(spi.ErrCombineTooFew)
	}
	out := &Chain[T]{name: "combine"}
	for _, c := range chains {
		if c.err != nil {
			return (&Chain[T]{}).fail(c.err)
		}
		out.branches = append(out.branches, c.branches...)
		out.sealedProducers = append(out.sealedProducers, c.sealedProducers...)
		out.recordsIn = append(out.recordsIn, c.recordsIn...)
		out.recordsOut = append(out.recordsOut, c.recordsOut...)
	}
	out.sealed = allSealed(chains)
	return out
}

func allSealed[T any](chains []*Chain[T]) bool {
	for _, c := range chains {
		if !c.sealed {
			return false
		}
	}
	return true
}

// Run executes the chain to completion using a discarding metrics sink.
// Only a terminated chain may be run (invariant: `run` on an unterminated
// chain fails with misuse).
func (c *Chain[T]) Run(ctx context.Context) error {
	return c.RunContext(ctx, spi.NewNoopMetrics())
}

// RunContext executes the chain to completion, reporting to m. The runtime
// graph it runs (producers, stage consumers and their worker pools) is
// built once, when Load terminates the chain, and is single-use: a second
// Run of the same Chain does not build a fresh graph, and its records are
// rejected by the already shut-down stage pools. Each invocation is tagged
// with a fresh google/uuid run ID, attached to ctx for error-sink and
// extract-loop log lines to pick up, and a logging.RunLog summarizing the
// run (duration, success, record counts) is emitted once before returning.
func (c *Chain[T]) RunContext(ctx context.Context, m spi.Metrics) error {
	if c.err != nil {
		return c.err
	}
	if len(c.branches) > 0 || !c.sealed {
		return spi.ErrNotTerminated
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	start := time.Now()

	root := c.rootProducer()
	var runErr error
	if err := root.Open(ctx); err != nil {
		runErr = err
	} else {
		produceErr := root.Produce(ctx)
		closeErr := root.Close()
		if closeErr != nil {
			runErr = closeErr
		} else {
			runErr = produceErr
		}
	}

	entry := &logging.RunLog{
		RunID:        runID,
		PipelineName: c.name,
		DurationMs:   time.Since(start).Milliseconds(),
		Success:      runErr == nil,
		RecordsIn:    sumCounters(c.recordsIn),
		RecordsOut:   sumCounters(c.recordsOut),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	logging.DefaultRunLogger().Log(entry)

	return runErr
}

func sumCounters(counters []*atomic.Int64) int64 {
	var total int64
	for _, counter := range counters {
		total += counter.Load()
	}
	return total
}

func (c *Chain[T]) rootProducer() producer.RuntimeProducer {
	if len(c.sealedProducers) == 1 {
		return c.sealedProducers[0]
	}
	return producer.NewCombined(c.sealedProducers...)
}
