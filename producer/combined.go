package producer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Combined fans in several upstream producers so they present as a single
// producer to their shared downstream consumer (spec §4.4.2, design note
// 9b). Every child is opened before any child produces; each child then
// produces and closes on its own goroutine. The children's shared
// downstream consumer is expected to be wrapped in consumer.Smart, and
// because all opens happen before the first close, it is opened and closed
// exactly once regardless of how many children hold it. Combined.Open and
// Combined.Close are no-ops: Produce drives each child's open/close pair.
type Combined struct {
	children []RuntimeProducer
}

// NewCombined builds a fan-in of two or more child producers.
func NewCombined(children ...RuntimeProducer) *Combined {
	return &Combined{children: children}
}

// Open implements RuntimeProducer. It is a no-op: Produce opens every child
// before starting any of them.
func (c *Combined) Open(context.Context) error { return nil }

// Produce implements RuntimeProducer. It opens every child in turn (closing
// the ones already opened if one fails), then runs each child's
// Produce→Close concurrently; the context derived by the errgroup is
// cancelled as soon as any child returns an error, so the first
// unrecoverable failure in one upstream stops the others from pulling more
// work. The first non-nil error from any child is returned.
func (c *Combined) Produce(ctx context.Context) error {
	for i, child := range c.children {
		if err := child.Open(ctx); err != nil {
			for _, opened := range c.children[:i] {
				_ = opened.Close()
			}
			return err
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range c.children {
		child := child
		g.Go(func() error {
			produceErr := child.Produce(gctx)
			closeErr := child.Close()
			if produceErr != nil {
				return produceErr
			}
			return closeErr
		})
	}
	return g.Wait()
}

// Close implements RuntimeProducer. It is a no-op: every child already
// closed itself at the end of its own goroutine in Produce.
func (c *Combined) Close() error { return nil }
