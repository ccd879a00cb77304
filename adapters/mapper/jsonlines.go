package mapper

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/oriys/pocketetl/spi"
)

// JSONLinesExtractor decodes one T per newline-delimited JSON line.
type JSONLinesExtractor[T any] struct {
	R       io.Reader
	scanner *bufio.Scanner
}

// NewJSONLinesExtractor builds a JSONLinesExtractor over r.
func NewJSONLinesExtractor[T any](r io.Reader) *JSONLinesExtractor[T] {
	return &JSONLinesExtractor[T]{R: r}
}

// Open implements spi.Extractor.
func (e *JSONLinesExtractor[T]) Open(spi.Metrics) error {
	e.scanner = bufio.NewScanner(e.R)
	e.scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return nil
}

// Next implements spi.Extractor.
func (e *JSONLinesExtractor[T]) Next(context.Context) (T, bool, error) {
	var zero T
	for e.scanner.Scan() {
		line := e.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return zero, false, spi.Unrecoverable("jsonlines-extract", err)
		}
		return v, true, nil
	}
	if err := e.scanner.Err(); err != nil {
		return zero, false, spi.Unrecoverable("jsonlines-extract", err)
	}
	return zero, false, nil
}

// Close implements spi.Extractor.
func (e *JSONLinesExtractor[T]) Close() error { return nil }

// JSONLinesLoader writes one JSON-encoded line per Load call.
type JSONLinesLoader[T any] struct {
	W io.Writer
}

// NewJSONLinesLoader builds a JSONLinesLoader writing to w.
func NewJSONLinesLoader[T any](w io.Writer) *JSONLinesLoader[T] {
	return &JSONLinesLoader[T]{W: w}
}

// Open implements spi.Loader.
func (l *JSONLinesLoader[T]) Open(spi.Metrics) error { return nil }

// Load implements spi.Loader.
func (l *JSONLinesLoader[T]) Load(_ context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return spi.Unrecoverable("jsonlines-load", err)
	}
	data = append(data, '\n')
	_, err = l.W.Write(data)
	return err
}

// Close implements spi.Loader.
func (l *JSONLinesLoader[T]) Close() error { return nil }
