package consumer

import (
	"context"
	"sync"

	"github.com/oriys/pocketetl/envelope"
	"github.com/oriys/pocketetl/spi"
)

// Smart tracks a reference count across Open calls so a consumer shared by
// a fan-in producer (spec §4.4.2) sees exactly one effective open and one
// effective close regardless of how many upstream producers hold it. The
// first Open opens the wrapped consumer; later ones only increment. Each
// Close decrements; the wrapped consumer closes when the count returns to
// zero. More closes than opens is a misuse error.
type Smart struct {
	wrapped RuntimeConsumer

	mu      sync.Mutex
	count   int
	openErr error
}

// NewSmart wraps wrapped with open/close reference counting.
func NewSmart(wrapped RuntimeConsumer) *Smart {
	return &Smart{wrapped: wrapped}
}

// Open implements RuntimeConsumer.
func (s *Smart) Open(ctx context.Context, m spi.Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.count == 1 {
		s.openErr = s.wrapped.Open(ctx, m)
	}
	return s.openErr
}

// Consume implements RuntimeConsumer.
func (s *Smart) Consume(ctx context.Context, e envelope.Envelope) error {
	return s.wrapped.Consume(ctx, e)
}

// Close implements RuntimeConsumer.
func (s *Smart) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count <= 0 {
		return spi.ErrCloseWithoutOpen
	}
	s.count--
	if s.count == 0 {
		return s.wrapped.Close()
	}
	return nil
}
