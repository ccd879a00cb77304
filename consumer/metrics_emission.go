package consumer

import (
	"context"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/internal/tracing"
	"github.com/oriys/pocketetl/scope"
	"github.com/oriys/pocketetl/spi"
)

// MetricsEmission emits a per-record counter ("<stage>.recordsProcessed")
// on every Consume, and a zero-valued counter on Open so the metric exists
// even for a stream that produces zero records (spec §4.3.2). Every Consume
// also opens a profiling scope named "<stage>.consume" around the wrapped
// call (spec §4.6), so a stage's failure modes are timed without the core
// having to special-case it elsewhere.
type MetricsEmission struct {
	stageName string
	wrapped   RuntimeConsumer
	metrics   spi.Metrics
}

// NewMetricsEmission wraps wrapped with per-record counting.
func NewMetricsEmission(stageName string, wrapped RuntimeConsumer) *MetricsEmission {
	return &MetricsEmission{stageName: stageName, wrapped: wrapped}
}

// Open implements RuntimeConsumer.
func (m *MetricsEmission) Open(ctx context.Context, metrics spi.Metrics) error {
	m.metrics = metrics
	metrics.AddCount(m.stageName+".recordsProcessed", 0)
	return m.wrapped.Open(ctx, metrics)
}

// Consume implements RuntimeConsumer.
func (m *MetricsEmission) Consume(ctx context.Context, e envelope.Envelope) error {
	m.metrics.AddCount(m.stageName+".recordsProcessed", 1)
	s := scope.Open(m.stageName+".consume", m.metrics)
	defer s.Close()
	ctx, span := tracing.StartSpan(ctx, m.stageName+".consume")
	err := m.wrapped.Consume(ctx, e)
	tracing.End(span, err)
	return err
}

// Close implements RuntimeConsumer.
func (m *MetricsEmission) Close() error {
	return m.wrapped.Close()
}
