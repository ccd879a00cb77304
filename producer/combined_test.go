package producer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type lifecycleProducer struct {
	opens    atomic.Int32
	produces atomic.Int32
	closes   atomic.Int32
	produce  func(ctx context.Context) error
}

func (l *lifecycleProducer) Open(context.Context) error {
	l.opens.Add(1)
	return nil
}

func (l *lifecycleProducer) Produce(ctx context.Context) error {
	l.produces.Add(1)
	if l.produce != nil {
		return l.produce(ctx)
	}
	return nil
}

func (l *lifecycleProducer) Close() error {
	l.closes.Add(1)
	return nil
}

func TestCombinedRunsEveryChildLifecycle(t *testing.T) {
	a := &lifecycleProducer{}
	b := &lifecycleProducer{}
	combined := NewCombined(a, b)

	if err := combined.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := combined.Produce(context.Background()); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if err := combined.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for i, p := range []*lifecycleProducer{a, b} {
		if p.opens.Load() != 1 || p.produces.Load() != 1 || p.closes.Load() != 1 {
			t.Fatalf("child %d: expected one open/produce/close each, got %d/%d/%d", i, p.opens.Load(), p.produces.Load(), p.closes.Load())
		}
	}
}

func TestCombinedPropagatesFirstChildFailure(t *testing.T) {
	cause := errors.New("boom")
	failing := &lifecycleProducer{produce: func(context.Context) error { return cause }}
	var started sync.WaitGroup
	started.Add(1)
	blocked := &lifecycleProducer{produce: func(ctx context.Context) error {
		started.Done()
		<-ctx.Done()
		return ctx.Err()
	}}
	combined := NewCombined(failing, blocked)

	err := combined.Produce(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("expected first child's failure propagated, got %v", err)
	}
}
