package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oriys/pocketetl/spi"
)

// ObjectLoader writes one object per record under Prefix, named
// "<Prefix><sequence>.json" by default. Useful as a terminal stage that
// fans a stream out into individually addressable objects, e.g. for a
// downstream batch job to pick up.
type ObjectLoader[T any] struct {
	Client *s3.Client
	Bucket string
	Prefix string
	Encode func(T) ([]byte, error)
	KeyFor func(seq int64, v T) string

	seq atomic.Int64
}

// NewObjectLoader builds an ObjectLoader writing into bucket/prefix. encode
// defaults to json.Marshal; KeyFor defaults to "<prefix><seq>.json".
func NewObjectLoader[T any](client *s3.Client, bucket, prefix string) *ObjectLoader[T] {
	return &ObjectLoader[T]{Client: client, Bucket: bucket, Prefix: prefix}
}

// Open implements spi.Loader.
func (l *ObjectLoader[T]) Open(spi.Metrics) error { return nil }

// Load implements spi.Loader.
func (l *ObjectLoader[T]) Load(ctx context.Context, v T) error {
	data, err := l.encode(v)
	if err != nil {
		return spi.Unrecoverable("s3-load", err)
	}
	seq := l.seq.Add(1)
	key := l.keyFor(seq, v)

	_, err = l.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Close implements spi.Loader.
func (l *ObjectLoader[T]) Close() error { return nil }

func (l *ObjectLoader[T]) encode(v T) ([]byte, error) {
	if l.Encode != nil {
		return l.Encode(v)
	}
	return json.Marshal(v)
}

func (l *ObjectLoader[T]) keyFor(seq int64, v T) string {
	if l.KeyFor != nil {
		return l.KeyFor(seq, v)
	}
	return fmt.Sprintf("%s%d.json", l.Prefix, seq)
}
