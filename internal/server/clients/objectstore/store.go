// Package objectstore holds the object store clients. Blobs are addressed
// by bucket and key; the gateway uses the owner as bucket and the directory
// record id as key.
package objectstore

import (
	"context"
	"io"
)

// PutResult is what the store reports after a put.
type PutResult struct {
	StoredSize int64 `json:"size"`
}

// Store is the narrow set of object store operations the sagas need.
type Store interface {
	// PutObject streams r under bucket/key. sizeHint is the size the caller
	// announced; the store reports what it actually stored.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, sizeHint int64) (PutResult, error)
	// GetObject opens the object for reading. The caller closes it.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	// CopyObject copies server side, no bytes pass through the gateway.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}
