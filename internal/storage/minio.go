package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"jobtracker/internal/config"
	apperrors "jobtracker/internal/errors"
)

// MinIOStore keeps files as objects in a MinIO or S3-compatible bucket.
type MinIOStore struct {
	mc     *minio.Client
	bucket string
}

var _ FileStore = (*MinIOStore)(nil)

// NewMinIOStore creates a MinIO client.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "jobtracker-cvs"
	}
	return &MinIOStore{mc: mc, bucket: bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		log.Printf("[minio] Created bucket: %s", s.bucket)
	}
	return nil
}

func (s *MinIOStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: bad file name", apperrors.ErrInvalidFile)
	}
	if contentType == "" {
		contentType = ContentType(name)
	}
	_, err := s.mc.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return PublicPrefix + name, nil
}

func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, apperrors.ErrNotFound
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return obj, nil
}

func (s *MinIOStore) Delete(ctx context.Context, publicPath string) error {
	name, ok := NameFromPublicPath(publicPath)
	if !ok {
		return fmt.Errorf("%w: bad file path %q", apperrors.ErrInvalidFile, publicPath)
	}
	return s.mc.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
}

// New selects the backend configured by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (FileStore, error) {
	switch cfg.StorageBackend {
	case "minio":
		store, err := NewMinIOStore(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		return NewLocalStore(cfg.UploadsDir)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
