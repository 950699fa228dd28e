// SPDX-License-Identifier: EPL-2.0

// Package storage uploads committed clips to an S3 compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ik5/audclip/asset"
	"github.com/ik5/audclip/internal/metrics"
	"github.com/ik5/audclip/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// DefaultPrefix is the key prefix clips are stored under.
const DefaultPrefix = "clips"

// ErrNotConfigured indicates an empty endpoint or bucket.
var ErrNotConfigured = errors.New("object store not configured")

// Config locates the bucket.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// ObjectClient is the part of *minio.Client the store uses.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// MinioStore keeps clips at <prefix>/<asset id>/<file name>.
type MinioStore struct {
	client  ObjectClient
	bucket  string
	region  string
	prefix  string
	backoff func() backoff.BackOff
	log     *zap.Logger
}

// Option configures a MinioStore.
type Option func(*MinioStore)

// WithBackOff sets the retry policy. Each call gets a fresh policy.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *MinioStore) { s.backoff = fn }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *MinioStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRegion sets the region used when the bucket has to be created.
func WithRegion(region string) Option {
	return func(s *MinioStore) { s.region = region }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *MinioStore) { s.log = l }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

// New returns a store over client.
func New(client ObjectClient, bucket string, opts ...Option) *MinioStore {
	s := &MinioStore{
		client:  client,
		bucket:  bucket,
		prefix:  DefaultPrefix,
		backoff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.L()
	}
	return s
}

// NewMinio connects to the store described by cfg.
func NewMinio(cfg Config, opts ...Option) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	opts = append([]Option{WithPrefix(cfg.Prefix), WithRegion(cfg.Region)}, opts...)
	return New(client, cfg.Bucket, opts...), nil
}

// Key is where a is stored.
func (s *MinioStore) Key(a asset.Asset) string {
	return path.Join(s.prefix, a.ID, filepath.Base(a.Path))
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	s.log.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

func contentType(p string) string {
	switch asset.Ext(p) {
	case "wav", "wave":
		return "audio/wav"
	case "m4a", "mp4", "aac":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "ogg", "oga":
		return "audio/ogg"
	}
	return "application/octet-stream"
}

// permanent stops retries for client errors other than throttling.
func permanent(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

func (s *MinioStore) retry(ctx context.Context, what string, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		if err := op(); err != nil {
			return permanent(err)
		}
		return nil
	}, backoff.WithContext(s.backoff(), ctx), func(err error, wait time.Duration) {
		s.log.Warn("object store request failed, retrying",
			zap.String("op", what),
			zap.Int("attempt", attempt),
			logger.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

// Upload stores the file of a and returns its key.
func (s *MinioStore) Upload(ctx context.Context, a asset.Asset) (key string, err error) {
	defer func() { metrics.Uploaded(err) }()

	f, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", a.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", a.Path, err)
	}

	key = s.Key(a)
	opts := minio.PutObjectOptions{
		ContentType: contentType(a.Path),
		UserMetadata: map[string]string{
			"asset-id": a.ID,
			"title":    a.Title,
		},
	}

	err = s.retry(ctx, "put", func() error {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(err)
		}
		_, err := s.client.PutObject(ctx, s.bucket, key, f, info.Size(), opts)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	s.log.Info("clip uploaded",
		zap.String("asset_id", a.ID),
		zap.String("key", key),
		zap.Int64("bytes", info.Size()),
	)
	return key, nil
}

// Remove deletes key. A missing object is not an error.
func (s *MinioStore) Remove(ctx context.Context, key string) error {
	err := s.retry(ctx, "remove", func() error {
		err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
