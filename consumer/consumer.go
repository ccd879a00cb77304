// Package consumer implements the runtime consumer chain every pipeline
// stage (transform or load) compiles into (spec §4.3): Smart wraps
// MetricsEmission wraps ExecutorDispatch wraps a leaf (LoaderLeaf or
// TransformerFanout). The error sink (ErrorSink) is the exception: it is not
// a RuntimeConsumer and is not wrapped by Smart, MetricsEmission or
// ExecutorDispatch; it runs inline on the calling worker through an
// Immediate pool, never delayed by another stage's backpressure.
package consumer

import (
	"context"
	"log/slog"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/executor"
	"github.com/oriys/pocketetl/internal/logging"
	"github.com/oriys/pocketetl/spi"
)

// RuntimeConsumer is the capability set every compiled consumer node
// exposes: open exactly once (possibly ref-counted by Smart), consume any
// number of envelopes, close exactly once.
type RuntimeConsumer interface {
	Open(ctx context.Context, m spi.Metrics) error
	Consume(ctx context.Context, e envelope.Envelope) error
	Close() error
}

// WrapStage builds the standard Smart(MetricsEmission(ExecutorDispatch(leaf)))
// composition for one pipeline stage.
func WrapStage(stageName string, leaf RuntimeConsumer, threads, queueCapacity int) *Smart {
	pool := executor.NewFixed(threads, queueCapacity)
	dispatch := NewExecutorDispatch(pool, leaf)
	metrics := NewMetricsEmission(stageName, dispatch)
	return NewSmart(metrics)
}

// closeLogged runs a leaf's user-supplied close function and applies the
// pipeline's close-error policy (spec §7): an UnrecoverableStreamFailure
// propagates unchanged, anything else is logged and swallowed so it never
// masks an earlier failure surfaced elsewhere in the chain. A nil logger
// falls back to the package-level operational logger.
func closeLogged(logger *slog.Logger, stageName string, closeFn func() error) error {
	err := closeFn()
	if err == nil {
		return nil
	}
	if spi.IsUnrecoverable(err) {
		return err
	}
	if logger == nil {
		logger = logging.Op()
	}
	logger.Warn("pocketetl: error closing stage resource", "stage", stageName, "error", err)
	return nil
}
