package logging

import (
	"log/slog"
	"os"
)

// InitStructured reconfigures the operational logger's output format and
// level. format is "text" (default) or "json" (Loki/ELK compatible).
func InitStructured(format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	opLogger.Store(logger)
}

// WithTrace returns logger decorated with trace/span fields, for call sites
// wrapped in an internal/tracing span. A nil logger falls back to the
// package-level operational logger.
func WithTrace(logger *slog.Logger, traceID, spanID string) *slog.Logger {
	if logger == nil {
		logger = opLogger.Load()
	}
	if traceID == "" {
		return logger
	}
	args := []any{"trace_id", traceID}
	if spanID != "" {
		args = append(args, "span_id", spanID)
	}
	return logger.With(args...)
}
