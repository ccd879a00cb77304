package producer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/internal/logging"
	"github.com/oriys/pocketetl/internal/tracing"
	"github.com/oriys/pocketetl/spi"
)

// downstreamConsumer is the subset of consumer.RuntimeConsumer a producer
// needs; declared locally to avoid producer importing consumer, which would
// create a cycle once consumer needs producer's types for combine (it
// currently doesn't, but the indirection keeps the two packages decoupled).
type downstreamConsumer interface {
	Open(ctx context.Context, m spi.Metrics) error
	Consume(ctx context.Context, e envelope.Envelope) error
	Close() error
}

// ExtractorPull drives one spi.Extractor's pull loop (spec §4.4.1): call
// Next repeatedly, serialize each value into an envelope, and Consume it
// downstream. A recoverable error from Next is logged and the loop
// continues; an unrecoverable one, or one raised by the downstream
// consumer, ends the loop and is returned from Produce.
type ExtractorPull[T any] struct {
	stageName  string
	extractor  spi.Extractor[T]
	downstream downstreamConsumer
	logger     *slog.Logger
	metrics    spi.Metrics
	recordsIn  *atomic.Int64
}

// CountInto directs ExtractorPull to increment counter once per record
// successfully pulled and enveloped, before it is handed downstream. A chain
// with several extract branches shares one counter across them so Run can
// report a single pipeline-wide records-in total.
func (p *ExtractorPull[T]) CountInto(counter *atomic.Int64) {
	p.recordsIn = counter
}

// NewExtractorPull builds the producer for one extract branch. A nil logger
// falls back to the package-level operational logger.
func NewExtractorPull[T any](stageName string, extractor spi.Extractor[T], downstream downstreamConsumer, logger *slog.Logger) *ExtractorPull[T] {
	if logger == nil {
		logger = logging.Op()
	}
	return &ExtractorPull[T]{stageName: stageName, extractor: extractor, downstream: downstream, logger: logger}
}

// Open implements RuntimeProducer: the extractor's own resource opens
// first, then the downstream consumer, so a downstream open failure can be
// cleaned up by closing the extractor we just opened.
func (p *ExtractorPull[T]) Open(ctx context.Context) error {
	p.metrics = spi.NewNoopMetrics()
	if err := p.extractor.Open(p.metrics); err != nil {
		return err
	}
	if err := p.downstream.Open(ctx, p.metrics); err != nil {
		_ = p.extractor.Close()
		return err
	}
	return nil
}

// Produce implements RuntimeProducer.
func (p *ExtractorPull[T]) Produce(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v, ok, err := p.extractor.Next(ctx)
		if err != nil {
			if spi.IsUnrecoverable(err) {
				return spi.Unrecoverable(p.stageName, err)
			}
			p.logError(ctx, err)
			continue
		}
		if !ok {
			return nil
		}
		e, err := envelope.New(v)
		if err != nil {
			p.logError(ctx, err)
			continue
		}
		if p.recordsIn != nil {
			p.recordsIn.Add(1)
		}
		if err := p.downstream.Consume(ctx, e); err != nil {
			return err
		}
	}
}

func (p *ExtractorPull[T]) logError(ctx context.Context, err error) {
	logger := tracing.Logger(ctx, p.logger)
	args := []any{"stage", p.stageName, "error", err}
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		args = append(args, "run_id", runID)
	}
	logger.Error("pocketetl: recoverable extract error", args...)
}

// Close implements RuntimeProducer: the extractor closes first, then the
// downstream consumer, mirroring the consumer chain's own close order.
func (p *ExtractorPull[T]) Close() error {
	extractErr := closeLogged(p.logger, p.stageName, p.extractor.Close)
	downstreamErr := p.downstream.Close()
	if extractErr != nil {
		return extractErr
	}
	return downstreamErr
}

func closeLogged(logger *slog.Logger, stageName string, closeFn func() error) error {
	err := closeFn()
	if err == nil {
		return nil
	}
	if spi.IsUnrecoverable(err) {
		return err
	}
	logger.Warn("pocketetl: error closing stage resource", "stage", stageName, "error", err)
	return nil
}
