package logging

import "context"

type runIDKey struct{}

// WithRunID attaches a run ID to ctx so call sites deep in a pipeline (error
// sinks, extractor pull loops) can log it without threading an extra
// parameter through every signature between RunContext and them.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID attached by WithRunID, or "" if ctx
// carries none.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
