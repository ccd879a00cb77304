// Package mapper adapts in-memory formats (CSV, JSON lines) into pocketetl
// extractors and loaders. Built on encoding/csv and encoding/json: the
// example pack has no third-party CSV or line-delimited JSON library more
// idiomatic than the standard library for this, so this package is one of
// the few stdlib-only corners of the module (see DESIGN.md).
package mapper

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/oriys/pocketetl/spi"
)

// CSVExtractor reads a header row followed by one record per line from R,
// converting each row to a T with Decode.
type CSVExtractor[T any] struct {
	R      io.Reader
	Decode func(header []string, row []string) (T, error)

	reader *csv.Reader
	header []string
}

// NewCSVExtractor builds a CSVExtractor over r.
func NewCSVExtractor[T any](r io.Reader, decode func(header, row []string) (T, error)) *CSVExtractor[T] {
	return &CSVExtractor[T]{R: r, Decode: decode}
}

// Open implements spi.Extractor: reads the header row.
func (e *CSVExtractor[T]) Open(spi.Metrics) error {
	e.reader = csv.NewReader(e.R)
	header, err := e.reader.Read()
	if err != nil {
		return err
	}
	e.header = header
	return nil
}

// Next implements spi.Extractor.
func (e *CSVExtractor[T]) Next(context.Context) (T, bool, error) {
	var zero T
	row, err := e.reader.Read()
	if err == io.EOF {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, spi.Unrecoverable("csv-extract", err)
	}
	v, err := e.Decode(e.header, row)
	if err != nil {
		return zero, false, spi.Unrecoverable("csv-extract", err)
	}
	return v, true, nil
}

// Close implements spi.Extractor. The reader's lifecycle, if it needs
// closing (e.g. an *os.File), belongs to the caller.
func (e *CSVExtractor[T]) Close() error { return nil }

// CSVLoader writes a header row before the first record and one record per
// Load call. A loader that is never given a record writes no header.
type CSVLoader[T any] struct {
	W       io.Writer
	Header  []string
	Encode  func(T) ([]string, error)
	writer  *csv.Writer
	wrote   bool
}

// NewCSVLoader builds a CSVLoader writing to w.
func NewCSVLoader[T any](w io.Writer, header []string, encode func(T) ([]string, error)) *CSVLoader[T] {
	return &CSVLoader[T]{W: w, Header: header, Encode: encode}
}

// Open implements spi.Loader.
func (l *CSVLoader[T]) Open(spi.Metrics) error {
	l.writer = csv.NewWriter(l.W)
	return nil
}

// Load implements spi.Loader.
func (l *CSVLoader[T]) Load(_ context.Context, v T) error {
	if !l.wrote {
		if err := l.writer.Write(l.Header); err != nil {
			return err
		}
		l.wrote = true
	}
	row, err := l.Encode(v)
	if err != nil {
		return spi.Unrecoverable("csv-load", err)
	}
	return l.writer.Write(row)
}

// Close implements spi.Loader: flushes the underlying csv.Writer.
func (l *CSVLoader[T]) Close() error {
	l.writer.Flush()
	return l.writer.Error()
}
