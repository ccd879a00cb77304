// Package producer implements the runtime producer chain a pipeline's
// extract stage compiles into (spec §4.4): ExtractorPull drives a single
// spi.Extractor's pull loop into a downstream consumer; Combined fans in
// several sibling producers concurrently so they present as one producer to
// their own downstream.
package producer

import "context"

// RuntimeProducer is the capability set every compiled producer node
// exposes: open once, produce until exhausted or aborted, close once.
// Produce does not close the downstream consumer; Close does, so Run calls
// Open, then Produce, then Close.
type RuntimeProducer interface {
	Open(ctx context.Context) error
	Produce(ctx context.Context) error
	Close() error
}
