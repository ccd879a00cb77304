package consumer

import (
	"context"
	"log/slog"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/executor"
	"github.com/oriys/pocketetl/internal/logging"
	"github.com/oriys/pocketetl/internal/tracing"
	"github.com/oriys/pocketetl/spi"
)

// ErrorSink is the per-stage consumer that receives records whose
// processing raised a recoverable error (spec §4.3.6): it renders the
// failed record with the stage's configured renderer and emits an error
// log line naming the stage and the cause. It runs on an Immediate
// executor so a failing record is never further delayed by another
// stage's queue.
type ErrorSink[T any] struct {
	stageName string
	renderer  spi.LogRenderer[T]
	logger    *slog.Logger
	pool      executor.Pool
}

// NewErrorSink builds the error sink for a stage. A nil renderer falls back
// to spi.DefaultRenderer, which reveals only the value's type name; a nil
// logger falls back to the package-level operational logger.
func NewErrorSink[T any](stageName string, renderer spi.LogRenderer[T], logger *slog.Logger) *ErrorSink[T] {
	if renderer == nil {
		renderer = spi.DefaultRenderer[T]
	}
	if logger == nil {
		logger = logging.Op()
	}
	return &ErrorSink[T]{stageName: stageName, renderer: renderer, logger: logger, pool: executor.NewImmediate()}
}

// Handle routes one failed record to the sink.
func (s *ErrorSink[T]) Handle(ctx context.Context, v T, _ envelope.Envelope, cause error) {
	_ = s.pool.Submit(ctx, func(context.Context, spi.Metrics) error {
		logger := tracing.Logger(ctx, s.logger)
		args := []any{"stage", s.stageName, "record", s.renderer(v), "error", cause}
		if runID := logging.RunIDFromContext(ctx); runID != "" {
			args = append(args, "run_id", runID)
		}
		logger.Error("pocketetl: recoverable record error", args...)
		return nil
	}, spi.NewNoopMetrics())
}
