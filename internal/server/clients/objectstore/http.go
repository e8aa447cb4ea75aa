package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
)

// FileField is the multipart field the storage service reads content from.
const FileField = "file"

var errPutAborted = errors.New("put aborted")

// HTTPStore talks to the storage service over HTTP. Objects live under
// bucket/{bucket}/key/{key} and copies go to copy, relative to the base URL.
type HTTPStore struct {
	http            *httpx.Client
	transferTimeout time.Duration
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore builds a store client. transferTimeout bounds calls that move
// content (put and get); the rest use the httpx client timeout.
func NewHTTPStore(c *httpx.Client, transferTimeout time.Duration) *HTTPStore {
	return &HTTPStore{http: c, transferTimeout: transferTimeout}
}

// PutObject sends r as multipart field "file". The body is produced through
// an io.Pipe so the content is never held in memory.
//
// On failure PutObject returns without waiting for the copy goroutine, which
// may be blocked reading r. It exits once r fails or ends, e.g. when the
// server closes the inbound request body.
func (s *HTTPStore) PutObject(ctx context.Context, bucket, key string, r io.Reader, sizeHint int64) (PutResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile(FileField, key)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	abort := func() {
		_ = pr.CloseWithError(errPutAborted)
	}

	req, err := s.http.NewRequest(ctx, http.MethodPost, objectURL(s.http, bucket, key), pr)
	if err != nil {
		abort()
		return PutResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.http.Do(req)
	if err != nil {
		abort()
		return PutResult{}, err
	}
	defer resp.Body.Close()

	var out PutResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		abort()
		return PutResult{}, fmt.Errorf("put %s/%s: decode response: %w: %w", bucket, key, common.ErrInternal, err)
	}

	// The store answered after reading the whole part, so the copy is done
	// with r and only the closing boundary may still be in flight.
	abort()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return out, nil
}

// objectURL is the storage service address of one object.
func objectURL(c *httpx.Client, bucket, key string) string {
	return c.URL(nil, "bucket", bucket, "key", key)
}

// GetObject streams the object. The transfer deadline ends when the caller
// closes the body.
func (s *HTTPStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)

	req, err := s.http.NewRequest(ctx, http.MethodGet, objectURL(s.http, bucket, key), nil)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	return httpx.BodyWithCancel(resp.Body, cancel), nil
}

func (s *HTTPStore) DeleteObject(ctx context.Context, bucket, key string) error {
	return s.http.DoJSON(ctx, http.MethodDelete, nil, nil, nil, "bucket", bucket, "key", key)
}

type copyRequest struct {
	SourceBucket string `json:"sourceBucket"`
	SourceKey    string `json:"sourceKey"`
	NewBucket    string `json:"newBucket"`
	NewKey       string `json:"newKey"`
}

func (s *HTTPStore) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	body := copyRequest{SourceBucket: srcBucket, SourceKey: srcKey, NewBucket: dstBucket, NewKey: dstKey}
	return s.http.DoJSON(ctx, http.MethodPost, nil, body, nil, "copy")
}
