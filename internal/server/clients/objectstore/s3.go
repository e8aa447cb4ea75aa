package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// s3API is the part of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Config selects an S3 compatible endpoint such as MinIO.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3Store keeps objects in S3. Buckets must already exist.
type S3Store struct {
	client          s3API
	transferTimeout time.Duration
	timeout         time.Duration
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds an S3 client with static credentials and path-style
// addressing. The SDK's buildable HTTP client is used so AWS_CA_BUNDLE and
// similar settings can still adjust its transport.
func NewS3Store(ctx context.Context, cfg S3Config, timeout, transferTimeout time.Duration) (*S3Store, error) {
	hc := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		tr.ResponseHeaderTimeout = timeout
		tr.MaxIdleConnsPerHost = 32
	})

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(hc),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return newS3Store(client, timeout, transferTimeout), nil
}

func newS3Store(client s3API, timeout, transferTimeout time.Duration) *S3Store {
	return &S3Store{client: client, timeout: timeout, transferTimeout: transferTimeout}
}

// PutObject uploads r with ContentLength set to sizeHint and reads the
// stored size back with HeadObject. The payload is sent unsigned so r does
// not need to be seekable, and the call is never retried since r cannot be
// replayed.
//
// A stream shorter or longer than sizeHint makes the transport refuse the
// request. That is reported as a stored size of what was read, not as an
// error, so the caller's size check decides.
func (s *S3Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, sizeHint int64) (PutResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	body := &countingReader{r: r}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(sizeHint),
	},
		s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware),
		func(o *s3.Options) { o.RetryMaxAttempts = 1 },
	)
	if err != nil {
		if body.lengthDiffers(sizeHint) {
			return PutResult{StoredSize: body.n}, nil
		}
		return PutResult{}, translateS3Error("put", bucket, key, err)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return PutResult{}, translateS3Error("head", bucket, key, err)
	}

	return PutResult{StoredSize: aws.ToInt64(head.ContentLength)}, nil
}

// countingReader counts bytes handed to the SDK and remembers whether the
// source ended cleanly.
type countingReader struct {
	r   io.Reader
	n   int64
	eof bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if errors.Is(err, io.EOF) {
		c.eof = true
	}
	return n, err
}

// lengthDiffers reports whether the source is known to hold a different
// number of bytes than want. A short count only counts once the source
// ended; a stream cut off by a failed request is not a mismatch.
func (c *countingReader) lengthDiffers(want int64) bool {
	return c.n > want || (c.eof && c.n < want)
}

func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		cancel()
		return nil, translateS3Error("get", bucket, key, err)
	}
	return httpx.BodyWithCancel(out.Body, cancel), nil
}

func (s *S3Store) DeleteObject(ctx context.Context, bucket, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translateS3Error("delete", bucket, key, err)
	}
	return nil
}

func (s *S3Store) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	ctx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + url.PathEscape(srcKey)),
	})
	if err != nil {
		return translateS3Error("copy", srcBucket, srcKey, err)
	}
	return nil
}

// translateS3Error maps missing objects to a NOT_FOUND ServiceError and
// everything else to ErrInternal.
func translateS3Error(op, bucket, key string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return &common.ServiceError{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("object %s/%s not found", bucket, key),
			Status:  http.StatusNotFound,
			Cause:   err,
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s %s/%s: %s: %w: %w", op, bucket, key, apiErr.ErrorCode(), common.ErrInternal, err)
	}
	return fmt.Errorf("s3 %s %s/%s: %w: %w", op, bucket, key, common.ErrInternal, err)
}
