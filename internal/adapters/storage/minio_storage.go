package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
)

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	StagingDir string
}

// MinIOStorage implements ports.BlobStore using MinIO. Fetched objects are
// staged in a local directory until released.
type MinIOStorage struct {
	client  *minio.Client
	cfg     MinIOConfig
	staging *stagingArea
}

func NewMinIOStorage(cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init MinIO client: %w", err)
	}

	staging, err := newStagingArea(cfg.StagingDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{
		client:  client,
		cfg:     cfg,
		staging: staging,
	}, nil
}

func (s *MinIOStorage) bucketFor(ref ports.FileRef) string {
	if ref.Bucket != "" {
		return ref.Bucket
	}
	return s.cfg.Bucket
}

func (s *MinIOStorage) Metadata(ctx context.Context, ref ports.FileRef) (*ports.ObjectMetadata, error) {
	bucket := s.bucketFor(ref)
	info, err := s.client.StatObject(ctx, bucket, ref.Object, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(ref, err)
	}

	return &ports.ObjectMetadata{
		Name:         info.Key,
		Bucket:       bucket,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		Checksum:     info.ChecksumCRC32C,
		LastModified: info.LastModified,
		UserMetadata: info.UserMetadata,
	}, nil
}

func (s *MinIOStorage) Fetch(ctx context.Context, ref ports.FileRef) (*ports.StagedObject, error) {
	obj, err := s.client.GetObject(ctx, s.bucketFor(ref), ref.Object, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(ref, err)
	}
	defer obj.Close()

	path, data, err := s.staging.stage(ref.Object, obj)
	staged := &ports.StagedObject{Ref: ref, LocalPath: path, Data: data}
	if err != nil {
		// The partial file is handed back so the caller can release it.
		return staged, translateMinIOError(ref, err)
	}
	return staged, nil
}

func (s *MinIOStorage) Release(ctx context.Context, obj *ports.StagedObject) error {
	if obj == nil {
		return nil
	}
	return s.staging.release(obj.LocalPath)
}

func (s *MinIOStorage) CleanupStaging(ctx context.Context) error {
	return s.staging.cleanup(ctx)
}

func translateMinIOError(ref ports.FileRef, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
			return appError.NewFileAccessError(ref.String(), appError.ErrObjectNotFound)
		}
	}
	return appError.NewFileAccessError(ref.String(), fmt.Errorf("%w: %v", appError.ErrObjectUnreadable, err))
}
