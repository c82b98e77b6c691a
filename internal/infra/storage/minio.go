package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and ensures the bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Put stores an image payload under a generated object id.
// The write is atomic: a failed upload leaves no partial object visible.
func (s *Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := uuid.New().String() + strings.ToLower(filepath.Ext(name))

	_, err := s.client.PutObject(ctx, s.bucketName, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeFor(name)},
	)
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", domain.ErrStorageUnavailable, key, err)
	}
	return key, nil
}

// Get returns the stored payload for a blob id.
func (s *Store) Get(ctx context.Context, blobID string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, blobID, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorageUnavailable, blobID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageUnavailable, blobID, err)
	}
	return data, nil
}

// Delete removes a blob; missing blobs report ErrNotFound so callers can
// decide whether that matters.
func (s *Store) Delete(ctx context.Context, blobID string) error {
	_, err := s.client.StatObject(ctx, s.bucketName, blobID, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: stat %s: %v", domain.ErrStorageUnavailable, blobID, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, blobID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorageUnavailable, blobID, err)
	}
	return nil
}

// Check pings the bucket, used by the health handler.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
