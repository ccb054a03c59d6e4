package storage

import (
	"context"
	"io"
)

// ObjectStorage is the object store surface used for archiving judge results.
type ObjectStorage interface {
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens an object; the caller closes the reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)
}

// ObjectStat is object metadata.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
