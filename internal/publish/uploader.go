// Package publish uploads the memory registry to S3-compatible storage.
// When no bucket is configured the NoopUploader is used and the registry
// stays a local file only.
package publish

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/quill/internal/config"
)

// DefaultObjectKey is used when the configured object key is empty.
const DefaultObjectKey = "registry/memory-registry.json"

// Uploader publishes a written registry file.
type Uploader interface {
	Upload(ctx context.Context, filePath string) error
	// Location names the upload target, or "" when nothing is published.
	Location() string
}

// s3Client is the subset of *minio.Client used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error
}

type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath, contentType string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// S3Uploader uploads the registry to a fixed object key.
type S3Uploader struct {
	client s3Client
	bucket string
	key    string
}

// Upload uploads the registry file at filePath.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, u.key, filePath, "application/json"); err != nil {
		return fmt.Errorf("upload registry to s3://%s/%s: %w", u.bucket, u.key, err)
	}
	return nil
}

// Location returns the s3:// URI the registry is uploaded to.
func (u *S3Uploader) Location() string {
	return "s3://" + u.bucket + "/" + u.key
}

// NoopUploader is used when publishing is not configured.
type NoopUploader struct{}

// Upload does nothing.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) error {
	return nil
}

// Location returns "".
func (u *NoopUploader) Location() string {
	return ""
}

// NewUploader returns a NoopUploader when the bucket is empty, an S3Uploader otherwise.
func NewUploader(cfg config.PublishConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	key := cfg.ObjectKey
	if key == "" {
		key = DefaultObjectKey
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		key:    key,
	}, nil
}
