package consumer

import (
	"context"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/spi"
)

// TransformerFanout projects an envelope into the stage's input view type,
// calls the user transformer, and tunnels each output record downstream
// wrapped in an envelope merged over the input (spec §4.3.5, invariant 3:
// an unrecognized attribute on the input survives into every output).
type TransformerFanout[I, O any] struct {
	stageName   string
	transformer spi.Transformer[I, O]
	downstream  RuntimeConsumer
	errSink     *ErrorSink[I]
}

// NewTransformerFanout builds the leaf for a transform stage.
func NewTransformerFanout[I, O any](stageName string, transformer spi.Transformer[I, O], downstream RuntimeConsumer, errSink *ErrorSink[I]) *TransformerFanout[I, O] {
	return &TransformerFanout[I, O]{stageName: stageName, transformer: transformer, downstream: downstream, errSink: errSink}
}

// Open implements RuntimeConsumer: the user transformer opens first, then
// the downstream consumer, so a downstream open failure can be cleaned up by
// closing the transformer just opened. Close releases both in the same order.
func (t *TransformerFanout[I, O]) Open(ctx context.Context, m spi.Metrics) error {
	if err := t.transformer.Open(m); err != nil {
		return err
	}
	if err := t.downstream.Open(ctx, m); err != nil {
		_ = t.transformer.Close()
		return err
	}
	return nil
}

// Consume implements RuntimeConsumer.
func (t *TransformerFanout[I, O]) Consume(ctx context.Context, e envelope.Envelope) error {
	var in I
	if err := envelope.Project(e, &in); err != nil {
		t.errSink.Handle(ctx, in, e, err)
		return nil
	}
	outputs, err := t.transformer.Transform(ctx, in)
	if err != nil {
		if spi.IsUnrecoverable(err) {
			return spi.Unrecoverable(t.stageName, err)
		}
		t.errSink.Handle(ctx, in, e, err)
		return nil
	}
	for _, out := range outputs {
		outEnvelope, err := envelope.New(out)
		if err != nil {
			t.errSink.Handle(ctx, in, e, err)
			continue
		}
		outEnvelope = e.Merge(outEnvelope)
		if err := t.downstream.Consume(ctx, outEnvelope); err != nil {
			return err
		}
	}
	return nil
}

// Close implements RuntimeConsumer: the user transformer closes first, then
// the downstream consumer, so a late output from Close-time flush never
// arrives at an already-closed downstream. Both are closed regardless of
// whether the first reports a failure; an unrecoverable failure from the
// transformer wins over one from downstream.
func (t *TransformerFanout[I, O]) Close() error {
	transformErr := closeLogged(t.errSink.logger, t.stageName, t.transformer.Close)
	downstreamErr := t.downstream.Close()
	if transformErr != nil {
		return transformErr
	}
	return downstreamErr
}
