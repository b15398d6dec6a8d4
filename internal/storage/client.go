// Package storage reads and writes the sales extract in S3-compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fashionstore/sales-ingest/internal/config"
	"github.com/fashionstore/sales-ingest/internal/logging"
)

var (
	// ErrObjectNotFound indicates the bucket or object key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnavailable indicates the storage endpoint could not be reached
	// or the request timed out.
	ErrUnavailable = errors.New("object storage unavailable")
)

// Client fetches the sales extract from a fixed bucket/object location.
type Client struct {
	mc     *minio.Client
	bucket string
	key    string
}

// New creates a storage client from configuration.
func New(cfg config.StorageConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &Client{
		mc:     mc,
		bucket: cfg.Bucket,
		key:    cfg.ObjectKey,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// ObjectKey returns the configured object key.
func (c *Client) ObjectKey() string { return c.key }

// Fetch downloads the extract object and returns its bytes.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	logging.Debug().
		Str("bucket", c.bucket).
		Str("key", c.key).
		Msg("Fetching extract from object storage")

	obj, err := c.mc.GetObject(ctx, c.bucket, c.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(err)
	}

	logging.Debug().
		Int("bytes", len(data)).
		Msg("Fetched extract")

	return data, nil
}

// Put uploads extract bytes to the configured bucket/object, creating
// the bucket if it does not exist. Used by the seed command.
func (c *Client) Put(ctx context.Context, data []byte) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return classify(err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return classify(err)
		}
	}

	_, err = c.mc.PutObject(ctx, c.bucket, c.key, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return classify(err)
	}

	logging.Info().
		Str("bucket", c.bucket).
		Str("key", c.key).
		Int("bytes", len(data)).
		Msg("Uploaded extract")

	return nil
}

// classify maps minio errors onto the package sentinels while keeping
// the original error in the chain.
func classify(err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrObjectNotFound, resp.Code)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
