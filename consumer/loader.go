package consumer

import (
	"context"
	"sync/atomic"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/spi"
)

// LoaderLeaf projects an envelope into the stage's declared view type and
// calls the user loader (spec §4.3.4). A recoverable error routes the
// record to errSink and is then considered handled; an
// UnrecoverableStreamFailure re-raises and unwinds the pipeline.
type LoaderLeaf[T any] struct {
	stageName  string
	loader     spi.Loader[T]
	errSink    *ErrorSink[T]
	recordsOut *atomic.Int64
}

// NewLoaderLeaf builds the terminal leaf for a load stage.
func NewLoaderLeaf[T any](stageName string, loader spi.Loader[T], errSink *ErrorSink[T]) *LoaderLeaf[T] {
	return &LoaderLeaf[T]{stageName: stageName, loader: loader, errSink: errSink}
}

// CountInto directs LoaderLeaf to increment counter once per record the
// user loader successfully persists, so Run can report a pipeline-wide
// records-out total.
func (l *LoaderLeaf[T]) CountInto(counter *atomic.Int64) {
	l.recordsOut = counter
}

// Open implements RuntimeConsumer.
func (l *LoaderLeaf[T]) Open(_ context.Context, m spi.Metrics) error {
	return l.loader.Open(m)
}

// Consume implements RuntimeConsumer.
func (l *LoaderLeaf[T]) Consume(ctx context.Context, e envelope.Envelope) error {
	var v T
	if err := envelope.Project(e, &v); err != nil {
		l.errSink.Handle(ctx, v, e, err)
		return nil
	}
	if err := l.loader.Load(ctx, v); err != nil {
		if spi.IsUnrecoverable(err) {
			return spi.Unrecoverable(l.stageName, err)
		}
		l.errSink.Handle(ctx, v, e, err)
		return nil
	}
	if l.recordsOut != nil {
		l.recordsOut.Add(1)
	}
	return nil
}

// Close implements RuntimeConsumer. A resource error from the user loader
// is logged and swallowed unless it is itself unrecoverable, per the
// pipeline's close-error policy (spec §7).
func (l *LoaderLeaf[T]) Close() error {
	return closeLogged(l.errSink.logger, l.stageName, l.loader.Close)
}
