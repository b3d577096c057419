package gateway

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"motorsporthub/config"
)

// BlobStore wraps MinIO client for image uploads to the platform's storage
type BlobStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
	metrics   *Metrics
}

// NewBlobStore creates a new S3-compatible storage client
func NewBlobStore(cfg *config.StorageConfig, logger zerolog.Logger, m *Metrics) (*BlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &BlobStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		logger:    logger,
		metrics:   m,
	}, nil
}

// Upload stores the object under name and returns its storage path.
func (s *BlobStore) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (path string, err error) {
	defer s.metrics.observe(s.bucket, "upload", time.Now(), &err)

	info, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		msg := err.Error()
		if resp := minio.ToErrorResponse(err); resp.Message != "" {
			msg = resp.Message
		}
		return "", &Error{Op: "upload " + s.bucket, Status: minio.ToErrorResponse(err).StatusCode, Message: msg, Err: err}
	}

	s.logger.Debug().
		Str("bucket", s.bucket).
		Str("object_key", info.Key).
		Int64("size", info.Size).
		Msg("uploaded image")

	return info.Key, nil
}

// PublicURL returns public URL for the given storage path
func (s *BlobStore) PublicURL(path string) string {
	return PublicURL(s.publicURL, s.bucket, path)
}

// PublicURL joins a public storage base, bucket and path. Absolute URLs are returned as is.
func PublicURL(base, bucket, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.TrimLeft(path, "/"))
}
