package pocketetl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oriys/pocketetl/spi"
)

type value struct {
	V string `etl:"v"`
}

type sliceExtractor struct {
	values []value
	idx    int
}

func (s *sliceExtractor) Open(spi.Metrics) error { return nil }

func (s *sliceExtractor) Next(context.Context) (value, bool, error) {
	if s.idx >= len(s.values) {
		return value{}, false, nil
	}
	v := s.values[s.idx]
	s.idx++
	return v, true, nil
}

func (s *sliceExtractor) Close() error { return nil }

type concurrencyTrackingTransformer struct {
	spi.NoopLifecycle
	current atomic.Int32
	peak    atomic.Int32
}

func (c *concurrencyTrackingTransformer) Transform(_ context.Context, in value) ([]value, error) {
	n := c.current.Add(1)
	defer c.current.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return []value{in}, nil
}

type recoverableOnBTransformer struct{ spi.NoopLifecycle }

func (recoverableOnBTransformer) Transform(_ context.Context, in value) ([]value, error) {
	if in.V == "B" {
		return nil, errors.New("bad record")
	}
	return []value{in}, nil
}

type fanOutTransformer struct{ spi.NoopLifecycle }

func (fanOutTransformer) Transform(_ context.Context, in value) ([]value, error) {
	lowered := make([]byte, len(in.V))
	for i := 0; i < len(in.V); i++ {
		c := in.V[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lowered[i] = c
	}
	return []value{in, {V: string(lowered)}}, nil
}

type bufferLoader struct {
	mu  sync.Mutex
	buf []value
}

func (b *bufferLoader) Open(spi.Metrics) error { return nil }

func (b *bufferLoader) Load(_ context.Context, v value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, v)
	return nil
}

func (b *bufferLoader) Close() error { return nil }

func (b *bufferLoader) snapshot() []value {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]value, len(b.buf))
	copy(out, b.buf)
	return out
}

// S3: parallel transform, concurrency bounded by WithThreads.
func TestPipelineParallelTransformBoundsConcurrency(t *testing.T) {
	inputs := make([]value, 100)
	for i := range inputs {
		inputs[i] = value{V: string(rune('a' + i%26))}
	}
	extractor := &sliceExtractor{values: inputs}
	transformer := &concurrencyTrackingTransformer{}
	loader := &bufferLoader{}

	c := Extract[value]([]Extractor[value]{extractor})
	t2 := Then[value, value](c, transformer, WithThreads[value](5))
	done := Load[value](t2, loader)

	if err := done.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := loader.snapshot(); len(got) != 100 {
		t.Fatalf("expected 100 records loaded, got %d", len(got))
	}
	if transformer.peak.Load() > 5 {
		t.Fatalf("expected peak concurrency <= 5, got %d", transformer.peak.Load())
	}
}

// S4: a recoverable transform error drops one record but the run succeeds.
func TestPipelineRecoverableTransformErrorDropsRecord(t *testing.T) {
	extractor := &sliceExtractor{values: []value{{V: "A"}, {V: "B"}, {V: "C"}}}
	loader := &bufferLoader{}

	c := Extract[value]([]Extractor[value]{extractor})
	t2 := Then[value, value](c, recoverableOnBTransformer{})
	done := Load[value](t2, loader)

	if err := done.Run(context.Background()); err != nil {
		t.Fatalf("expected normal completion, got %v", err)
	}
	got := loader.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 records loaded (A and C), got %d: %+v", len(got), got)
	}
	seen := map[string]bool{}
	for _, v := range got {
		seen[v.V] = true
	}
	if !seen["A"] || !seen["C"] || seen["B"] {
		t.Fatalf("expected exactly A and C loaded, got %+v", got)
	}
}

// S6: a fan-out transformer that emits two records per input.
func TestPipelineFanOutTransformerEmitsMultipleRecords(t *testing.T) {
	extractor := &sliceExtractor{values: []value{{V: "ONE"}, {V: "TWO"}, {V: "THREE"}}}
	loader := &bufferLoader{}

	c := Extract[value]([]Extractor[value]{extractor})
	t2 := Then[value, value](c, fanOutTransformer{})
	done := Load[value](t2, loader)

	if err := done.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := loader.snapshot()
	if len(got) != 6 {
		t.Fatalf("expected 6 records, got %d", len(got))
	}
	counts := map[string]int{}
	for _, v := range got {
		counts[v.V]++
	}
	for _, want := range []string{"ONE", "one", "TWO", "two", "THREE", "three"} {
		if counts[want] != 1 {
			t.Fatalf("expected exactly one %q, got %d", want, counts[want])
		}
	}
}
