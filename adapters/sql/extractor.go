// Package sql adapts a Postgres query into a pocketetl extractor and a
// per-record upsert statement into a loader, grounded on the teacher's
// internal/store.PostgresStore: a caller-supplied pgxpool.Pool, plain SQL
// strings rather than an ORM, and context-scoped Query/Exec calls.
package sql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oriys/pocketetl/spi"
)

// RowExtractor runs Query once in Open and streams the resulting rows,
// scanning each into a T with Scan.
type RowExtractor[T any] struct {
	Pool  *pgxpool.Pool
	Query string
	Args  []any
	Scan  func(pgx.Rows) (T, error)

	rows pgx.Rows
}

// NewRowExtractor builds a RowExtractor over pool.
func NewRowExtractor[T any](pool *pgxpool.Pool, query string, scan func(pgx.Rows) (T, error), args ...any) *RowExtractor[T] {
	return &RowExtractor[T]{Pool: pool, Query: query, Args: args, Scan: scan}
}

// Open implements spi.Extractor: runs the query and keeps the resulting
// cursor open across calls to Next.
func (e *RowExtractor[T]) Open(spi.Metrics) error {
	rows, err := e.Pool.Query(context.Background(), e.Query, e.Args...)
	if err != nil {
		return err
	}
	e.rows = rows
	return nil
}

// Next implements spi.Extractor.
func (e *RowExtractor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if !e.rows.Next() {
		if err := e.rows.Err(); err != nil {
			return zero, false, spi.Unrecoverable("sql-extract", err)
		}
		return zero, false, nil
	}
	v, err := e.Scan(e.rows)
	if err != nil {
		return zero, false, spi.Unrecoverable("sql-extract", err)
	}
	return v, true, nil
}

// Close implements spi.Extractor: releases the cursor. The pool's
// lifecycle belongs to the caller.
func (e *RowExtractor[T]) Close() error {
	if e.rows != nil {
		e.rows.Close()
	}
	return nil
}
