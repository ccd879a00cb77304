package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/spi"
)

type widget struct {
	ID   int    `etl:"id"`
	Name string `etl:"name"`
}

type doubled struct {
	ID int `etl:"id"`
}

type fakeTransformer struct {
	outputs   []doubled
	transform func(widget) ([]doubled, error)
	closed    bool
}

func (f *fakeTransformer) Open(spi.Metrics) error { return nil }
func (f *fakeTransformer) Transform(_ context.Context, in widget) ([]doubled, error) {
	if f.transform != nil {
		return f.transform(in)
	}
	return f.outputs, nil
}
func (f *fakeTransformer) Close() error {
	f.closed = true
	return nil
}

func TestTransformerFanoutTunnelsUnknownAttributes(t *testing.T) {
	transformer := &fakeTransformer{outputs: []doubled{{ID: 1}, {ID: 2}}}
	downstream := &fakeConsumer{}
	sink := NewErrorSink[widget]("stage", nil, nil)
	fanout := NewTransformerFanout[widget, doubled]("stage", transformer, downstream, sink)

	e, err := envelope.New(widget{ID: 1, Name: "gizmo"})
	if err != nil {
		t.Fatalf("envelope.New: %v", err)
	}
	if err := fanout.Consume(context.Background(), e); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(downstream.consumed) != 2 {
		t.Fatalf("expected 2 fanned-out records, got %d", len(downstream.consumed))
	}
	for _, out := range downstream.consumed {
		if name, ok := out.Attr("name"); !ok || name != "gizmo" {
			t.Fatalf("expected tunnelled name attribute to survive, got %v ok=%v", name, ok)
		}
	}
}

func TestTransformerFanoutRecoverableErrorRoutesToSink(t *testing.T) {
	transformer := &fakeTransformer{transform: func(widget) ([]doubled, error) {
		return nil, errors.New("transient")
	}}
	downstream := &fakeConsumer{}
	sink := NewErrorSink[widget]("stage", nil, nil)
	fanout := NewTransformerFanout[widget, doubled]("stage", transformer, downstream, sink)

	e, _ := envelope.New(widget{ID: 1})
	if err := fanout.Consume(context.Background(), e); err != nil {
		t.Fatalf("expected recoverable error swallowed, got %v", err)
	}
	if len(downstream.consumed) != 0 {
		t.Fatalf("expected no downstream delivery, got %d", len(downstream.consumed))
	}
}

func TestTransformerFanoutUnrecoverableErrorPropagates(t *testing.T) {
	cause := errors.New("fatal")
	transformer := &fakeTransformer{transform: func(widget) ([]doubled, error) {
		return nil, spi.Unrecoverable("stage", cause)
	}}
	downstream := &fakeConsumer{}
	sink := NewErrorSink[widget]("stage", nil, nil)
	fanout := NewTransformerFanout[widget, doubled]("stage", transformer, downstream, sink)

	e, _ := envelope.New(widget{ID: 1})
	err := fanout.Consume(context.Background(), e)
	if !spi.IsUnrecoverable(err) {
		t.Fatalf("expected unrecoverable error, got %v", err)
	}
}

func TestTransformerFanoutCloseClosesTransformerThenDownstream(t *testing.T) {
	transformer := &fakeTransformer{}
	downstream := &fakeConsumer{}
	sink := NewErrorSink[widget]("stage", nil, nil)
	fanout := NewTransformerFanout[widget, doubled]("stage", transformer, downstream, sink)

	if err := fanout.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !transformer.closed {
		t.Fatal("expected transformer closed")
	}
	if downstream.closes != 1 {
		t.Fatalf("expected downstream closed once, got %d", downstream.closes)
	}
}
