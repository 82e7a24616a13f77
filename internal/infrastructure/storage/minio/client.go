// Package minio publishes and loads monomer libraries in S3-compatible
// object storage.
package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

var (
	ErrObjectNotFound   = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "object store connection failed")
)

const connectTimeout = 10 * time.Second

// ObjectAPI is the subset of object storage operations helmkit needs.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
	GetObject(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error
}

// minioAPI adapts *minio.Client to ObjectAPI.
type minioAPI struct {
	client *minio.Client
}

func (a minioAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return a.client.BucketExists(ctx, bucket)
}

func (a minioAPI) MakeBucket(ctx context.Context, bucket, region string) error {
	return a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// GetObject stats the object first so a missing key fails here rather than
// on the first Read.
func (a minioAPI) GetObject(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound.WithCause(err).WithDetailf("bucket=%s object=%s", bucket, object)
		}
		return nil, err
	}
	return obj, nil
}

func (a minioAPI) PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, contentType string) error {
	_, err := a.client.PutObject(ctx, bucket, object, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Client is a bucket-scoped object store client.
type Client struct {
	api    ObjectAPI
	cfg    config.ObjectStoreConfig
	logger logging.Logger
}

// NewClient connects to cfg.Endpoint and verifies that the bucket is
// reachable.
func NewClient(ctx context.Context, cfg config.ObjectStoreConfig, log logging.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create object store client")
	}
	c := NewClientWithAPI(minioAPI{client: mc}, cfg, log)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if _, err := c.api.BucketExists(ctx, cfg.Bucket); err != nil {
		return nil, ErrConnectionFailed.WithCause(err).WithDetailf("endpoint=%s", cfg.Endpoint)
	}
	c.logger.Info("Object store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing ObjectAPI, typically a fake in tests.
func NewClientWithAPI(api ObjectAPI, cfg config.ObjectStoreConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, cfg: cfg, logger: log}
}

// EnsureBucket creates the configured bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check bucket").WithDetailf("bucket=%s", c.cfg.Bucket)
	}
	if ok {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.cfg.Bucket, c.cfg.Region); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create bucket").WithDetailf("bucket=%s", c.cfg.Bucket)
	}
	c.logger.Info("Bucket created", logging.String("bucket", c.cfg.Bucket))
	return nil
}

// HealthCheck reports whether the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.BucketExists(ctx, c.cfg.Bucket); err != nil {
		return ErrConnectionFailed.WithCause(err)
	}
	return nil
}
