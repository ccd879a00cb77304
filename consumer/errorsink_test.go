package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/oriys/pocketetl/envelope"
)

func TestErrorSinkHandleDoesNotPanicWithDefaultRenderer(t *testing.T) {
	sink := NewErrorSink[widget]("stage", nil, nil)
	e, _ := envelope.New(widget{ID: 1})
	sink.Handle(context.Background(), widget{ID: 1}, e, errors.New("boom"))
}

func TestErrorSinkHandleUsesCustomRenderer(t *testing.T) {
	var rendered string
	sink := NewErrorSink[widget]("stage", func(v widget) string {
		rendered = v.Name
		return v.Name
	}, nil)
	e, _ := envelope.New(widget{ID: 1, Name: "gizmo"})
	sink.Handle(context.Background(), widget{ID: 1, Name: "gizmo"}, e, errors.New("boom"))
	if rendered != "gizmo" {
		t.Fatalf("expected renderer invoked with gizmo, got %q", rendered)
	}
}
