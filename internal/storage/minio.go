// Package storage provides the object store for rendered PDFs and uploaded
// signature images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// ObjectStore abstracts the file storage used for PDFs and images.
type ObjectStore interface {
	Upload(ctx context.Context, prefix, filename string, data []byte) (string, error)
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// MinIOStore implements ObjectStore on a MinIO bucket.
type MinIOStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOStore creates the store and ensures the bucket exists.
func NewMinIOStore(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", bucketName).Info("Bucket created")
	}

	return &MinIOStore{client: client, bucketName: bucketName}, nil
}

// Upload stores data under a unique object name derived from the original
// filename and returns the object name.
func (s *MinIOStore) Upload(ctx context.Context, prefix, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	objectName := fmt.Sprintf("%s/%s_%d%s", prefix, uuid.New().String()[:8], time.Now().Unix(), ext)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentTypeFor(ext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	log.WithField("object", objectName).Debug("Object uploaded")
	return objectName, nil
}

// PresignedURL returns a temporary download URL for an object (1 hour).
func (s *MinIOStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// Delete removes an object.
func (s *MinIOStore) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
