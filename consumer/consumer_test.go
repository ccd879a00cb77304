package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/executor"
	"github.com/oriys/pocketetl/spi"
)

type fakeConsumer struct {
	mu        sync.Mutex
	opens     int
	closes    int
	consumed  []envelope.Envelope
	openErr   error
	closeErr  error
	consumeFn func(context.Context, envelope.Envelope) error
}

func (f *fakeConsumer) Open(context.Context, spi.Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *fakeConsumer) Consume(ctx context.Context, e envelope.Envelope) error {
	f.mu.Lock()
	f.consumed = append(f.consumed, e)
	fn := f.consumeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, e)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func TestSmartOpenCloseRefCounting(t *testing.T) {
	inner := &fakeConsumer{}
	s := NewSmart(inner)

	if err := s.Open(context.Background(), spi.NewNoopMetrics()); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Open(context.Background(), spi.NewNoopMetrics()); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if inner.opens != 1 {
		t.Fatalf("expected inner opened once, got %d", inner.opens)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if inner.closes != 0 {
		t.Fatalf("inner should not be closed yet, got %d closes", inner.closes)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if inner.closes != 1 {
		t.Fatalf("expected inner closed once, got %d", inner.closes)
	}
}

func TestSmartCloseWithoutOpenFails(t *testing.T) {
	s := NewSmart(&fakeConsumer{})
	if err := s.Close(); !errors.Is(err, spi.ErrCloseWithoutOpen) {
		t.Fatalf("expected ErrCloseWithoutOpen, got %v", err)
	}
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int64)}
}

func (m *countingMetrics) AddCount(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] += value
}
func (m *countingMetrics) AddTime(string, float64)         {}
func (m *countingMetrics) CreateChildMetrics() spi.Metrics { return newCountingMetrics() }
func (m *countingMetrics) Close()                          {}

func (m *countingMetrics) get(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func TestMetricsEmissionCountsRecordsAndZeroesOnOpen(t *testing.T) {
	inner := &fakeConsumer{}
	me := NewMetricsEmission("stage", inner)
	m := newCountingMetrics()

	if err := me.Open(context.Background(), m); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := m.get("stage.recordsProcessed"); got != 0 {
		t.Fatalf("expected 0 after open, got %d", got)
	}

	e, _ := envelope.New(struct{ X int }{X: 1})
	for i := 0; i < 3; i++ {
		if err := me.Consume(context.Background(), e); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	if got := m.get("stage.recordsProcessed"); got != 3 {
		t.Fatalf("expected 3 records processed, got %d", got)
	}
	if len(inner.consumed) != 3 {
		t.Fatalf("expected inner consumed 3 times, got %d", len(inner.consumed))
	}
}

func TestExecutorDispatchRunsConsumeOnPoolAndSurfacesFailure(t *testing.T) {
	inner := &fakeConsumer{consumeFn: func(context.Context, envelope.Envelope) error {
		return spi.Unrecoverable("stage", errors.New("boom"))
	}}
	dispatch := NewExecutorDispatch(executor.NewFixed(1, 1), inner)
	if err := dispatch.Open(context.Background(), spi.NewNoopMetrics()); err != nil {
		t.Fatalf("open: %v", err)
	}
	e, _ := envelope.New(struct{ X int }{X: 1})
	if err := dispatch.Consume(context.Background(), e); err != nil {
		t.Fatalf("consume should not itself fail: %v", err)
	}
	if err := dispatch.Close(); !spi.IsUnrecoverable(err) {
		t.Fatalf("expected unrecoverable failure surfaced on close, got %v", err)
	}
}
