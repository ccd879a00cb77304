package sql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oriys/pocketetl/spi"
)

// RowLoader executes Statement once per record with the arguments ArgsFor
// extracts from it, mirroring the upsert style of the teacher's
// PostgresStore (INSERT ... ON CONFLICT DO UPDATE).
type RowLoader[T any] struct {
	Pool      *pgxpool.Pool
	Statement string
	ArgsFor   func(T) []any
}

// NewRowLoader builds a RowLoader against pool.
func NewRowLoader[T any](pool *pgxpool.Pool, statement string, argsFor func(T) []any) *RowLoader[T] {
	return &RowLoader[T]{Pool: pool, Statement: statement, ArgsFor: argsFor}
}

// Open implements spi.Loader.
func (l *RowLoader[T]) Open(spi.Metrics) error { return nil }

// Load implements spi.Loader.
func (l *RowLoader[T]) Load(ctx context.Context, v T) error {
	_, err := l.Pool.Exec(ctx, l.Statement, l.ArgsFor(v)...)
	return err
}

// Close implements spi.Loader. The pool's lifecycle belongs to the caller.
func (l *RowLoader[T]) Close() error { return nil }
