// Package redis adapts a Redis list into pocketetl extractors and loaders,
// grounded on the teacher's RedisListNotifier (internal/queue/redis_list_notifier.go):
// the same LPUSH/BRPOP push-pull pattern, the same short-timeout polling loop
// so context cancellation is checked promptly, and the same transient-error
// backoff-and-retry instead of failing the whole stream on one hiccup.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oriys/pocketetl/spi"
)

const defaultBlockTimeout = 1 * time.Second
const defaultBackoff = 100 * time.Millisecond

// QueueExtractor pulls JSON-encoded records off a Redis list with BRPOP.
// The stream is considered drained, and Next returns ok=false, after
// IdleTimeout elapses with no new list entry; a zero IdleTimeout means the
// extractor blocks forever waiting for work (suitable for a long-running
// pipeline fed by producers elsewhere).
type QueueExtractor[T any] struct {
	Client       *redis.Client
	Key          string
	IdleTimeout  time.Duration
	Decode       func([]byte) (T, error)
	blockTimeout time.Duration
	idleSince    time.Time
}

// NewQueueExtractor builds a QueueExtractor reading from key. decode
// defaults to json.Unmarshal into T.
func NewQueueExtractor[T any](client *redis.Client, key string) *QueueExtractor[T] {
	return &QueueExtractor[T]{
		Client:       client,
		Key:          key,
		blockTimeout: defaultBlockTimeout,
	}
}

// Open implements spi.Extractor.
func (q *QueueExtractor[T]) Open(spi.Metrics) error {
	if q.blockTimeout <= 0 {
		q.blockTimeout = defaultBlockTimeout
	}
	q.idleSince = time.Time{}
	return nil
}

// Next implements spi.Extractor.
func (q *QueueExtractor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		select {
		case <-ctx.Done():
			return zero, false, nil
		default:
		}

		result, err := q.Client.BRPop(ctx, q.blockTimeout, q.Key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if q.idleExpired() {
					return zero, false, nil
				}
				continue
			}
			if ctx.Err() != nil {
				return zero, false, nil
			}
			select {
			case <-ctx.Done():
				return zero, false, nil
			case <-time.After(defaultBackoff):
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		q.idleSince = time.Time{}
		v, decodeErr := q.decode([]byte(result[1]))
		if decodeErr != nil {
			return zero, false, spi.Unrecoverable("redis-extract", decodeErr)
		}
		return v, true, nil
	}
}

// Close implements spi.Extractor. The client's lifecycle belongs to the
// caller, not the extractor.
func (q *QueueExtractor[T]) Close() error { return nil }

func (q *QueueExtractor[T]) decode(data []byte) (T, error) {
	if q.Decode != nil {
		return q.Decode(data)
	}
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

func (q *QueueExtractor[T]) idleExpired() bool {
	if q.IdleTimeout <= 0 {
		return false
	}
	if q.idleSince.IsZero() {
		q.idleSince = time.Now()
		return false
	}
	return time.Since(q.idleSince) >= q.IdleTimeout
}
