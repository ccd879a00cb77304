package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/oriys/pocketetl/spi"
)

// QueueLoader LPUSHes a JSON-encoded record onto a Redis list, the write
// side of the same list a QueueExtractor drains with BRPOP.
type QueueLoader[T any] struct {
	Client *redis.Client
	Key    string
	Encode func(T) ([]byte, error)
}

// NewQueueLoader builds a QueueLoader writing to key. encode defaults to
// json.Marshal.
func NewQueueLoader[T any](client *redis.Client, key string) *QueueLoader[T] {
	return &QueueLoader[T]{Client: client, Key: key}
}

// Open implements spi.Loader.
func (q *QueueLoader[T]) Open(spi.Metrics) error { return nil }

// Load implements spi.Loader.
func (q *QueueLoader[T]) Load(ctx context.Context, v T) error {
	data, err := q.encode(v)
	if err != nil {
		return spi.Unrecoverable("redis-load", err)
	}
	return q.Client.LPush(ctx, q.Key, data).Err()
}

// Close implements spi.Loader.
func (q *QueueLoader[T]) Close() error { return nil }

func (q *QueueLoader[T]) encode(v T) ([]byte, error) {
	if q.Encode != nil {
		return q.Encode(v)
	}
	return json.Marshal(v)
}
