package gcp

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

// BucketReader reads reference objects from Cloud Storage.
type BucketReader interface {
	DownloadFile(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Close() error
}

type bucketReader struct {
	log *logger.Logger

	mu            sync.Mutex
	storageClient *storage.Client
	opts          []option.ClientOption
}

// NewBucketReader defers client creation to the first download so that
// deployments without gs:// references never need credentials.
func NewBucketReader(log *logger.Logger) BucketReader {
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	return &bucketReader{
		log:  log.With("service", "BucketReader"),
		opts: opts,
	}
}

func (br *bucketReader) client(ctx context.Context) (*storage.Client, error) {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.storageClient != nil {
		return br.storageClient, nil
	}
	c, err := storage.NewClient(ctx, br.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	br.storageClient = c
	return c, nil
}

// Cancel is tied to Close so the reader stays usable after return.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (br *bucketReader) DownloadFile(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	bucket = strings.TrimSpace(bucket)
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bucket and key required")
	}
	c, err := br.client(ctx)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := c.Bucket(bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	br.log.Debug("opened reference object", "bucket", bucket, "key", key, "size", r.Attrs.Size)
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (br *bucketReader) Close() error {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.storageClient == nil {
		return nil
	}
	err := br.storageClient.Close()
	br.storageClient = nil
	return err
}
