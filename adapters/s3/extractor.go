// Package s3 adapts Amazon S3 into pocketetl extractors and loaders. The
// core's aws-sdk-go-v2 module and its config/credentials sub-modules are
// already in the teacher's go.mod; this package is the first caller that
// actually exercises them, via the service/s3 client.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oriys/pocketetl/spi"
)

// ObjectExtractor lists objects under Prefix in Bucket and decodes each
// object's body as one T. An object holding several newline-delimited
// records is not split into separate records.
type ObjectExtractor[T any] struct {
	Client *s3.Client
	Bucket string
	Prefix string
	Decode func([]byte) (T, error)

	keys []string
	idx  int
}

// NewObjectExtractor builds an ObjectExtractor over bucket/prefix. decode
// defaults to json.Unmarshal.
func NewObjectExtractor[T any](client *s3.Client, bucket, prefix string) *ObjectExtractor[T] {
	return &ObjectExtractor[T]{Client: client, Bucket: bucket, Prefix: prefix}
}

// Open implements spi.Extractor: lists every object key under Prefix
// up front using the service's paginator.
func (e *ObjectExtractor[T]) Open(spi.Metrics) error {
	ctx := context.Background()
	paginator := s3.NewListObjectsV2Paginator(e.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.Bucket),
		Prefix: aws.String(e.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			e.keys = append(e.keys, aws.ToString(obj.Key))
		}
	}
	return nil
}

// Next implements spi.Extractor.
func (e *ObjectExtractor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if e.idx >= len(e.keys) {
		return zero, false, nil
	}
	key := e.keys[e.idx]
	e.idx++

	out, err := e.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return zero, false, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return zero, false, spi.Unrecoverable("s3-extract", err)
	}

	v, err := e.decode(data)
	if err != nil {
		return zero, false, spi.Unrecoverable("s3-extract", err)
	}
	return v, true, nil
}

// Close implements spi.Extractor. The client's lifecycle belongs to the
// caller.
func (e *ObjectExtractor[T]) Close() error { return nil }

func (e *ObjectExtractor[T]) decode(data []byte) (T, error) {
	if e.Decode != nil {
		return e.Decode(data)
	}
	var v T
	err := json.Unmarshal(bytes.TrimSpace(data), &v)
	return v, err
}
