// Package dynamodb adapts Amazon DynamoDB into a pocketetl loader, batching
// records with BatchWriteItem since DynamoDB charges per request and caps
// each batch at 25 items.
package dynamodb

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/oriys/pocketetl/spi"
)

const maxBatchItems = 25

// BatchLoader buffers records and flushes them to Table with
// BatchWriteItem once BatchSize records have accumulated, and again on
// Close for any remainder. BatchSize is clamped to DynamoDB's 25-item
// batch limit.
type BatchLoader[T any] struct {
	Client    *dynamodb.Client
	Table     string
	BatchSize int
	Marshal   func(T) (map[string]types.AttributeValue, error)

	mu  sync.Mutex
	buf []map[string]types.AttributeValue
}

// NewBatchLoader builds a BatchLoader writing into table.
func NewBatchLoader[T any](client *dynamodb.Client, table string, marshal func(T) (map[string]types.AttributeValue, error)) *BatchLoader[T] {
	return &BatchLoader[T]{Client: client, Table: table, BatchSize: maxBatchItems, Marshal: marshal}
}

// SetBatchLimit implements spi.BatchConfigurable, letting a stage's
// WithBatchLimit option override BatchSize without the caller constructing
// the loader with it directly.
func (l *BatchLoader[T]) SetBatchLimit(n int) {
	l.BatchSize = n
}

// Open implements spi.Loader.
func (l *BatchLoader[T]) Open(spi.Metrics) error {
	if l.BatchSize <= 0 || l.BatchSize > maxBatchItems {
		l.BatchSize = maxBatchItems
	}
	return nil
}

// Load implements spi.Loader. It buffers v and flushes whenever the buffer
// reaches BatchSize.
func (l *BatchLoader[T]) Load(ctx context.Context, v T) error {
	item, err := l.Marshal(v)
	if err != nil {
		return spi.Unrecoverable("dynamodb-load", err)
	}

	l.mu.Lock()
	l.buf = append(l.buf, item)
	flush := len(l.buf) >= l.BatchSize
	var batch []map[string]types.AttributeValue
	if flush {
		batch = l.buf
		l.buf = nil
	}
	l.mu.Unlock()

	if flush {
		return l.writeBatch(ctx, batch)
	}
	return nil
}

// Close implements spi.Loader: flushes any buffered items.
func (l *BatchLoader[T]) Close() error {
	l.mu.Lock()
	batch := l.buf
	l.buf = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return l.writeBatch(context.Background(), batch)
}

func (l *BatchLoader[T]) writeBatch(ctx context.Context, items []map[string]types.AttributeValue) error {
	writeRequests := make([]types.WriteRequest, len(items))
	for i, item := range items {
		writeRequests[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
	}

	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{l.Table: writeRequests},
	}
	for {
		out, err := l.Client.BatchWriteItem(ctx, input)
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		input = &dynamodb.BatchWriteItemInput{RequestItems: out.UnprocessedItems}
	}
}
