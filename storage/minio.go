package storage

import (
	"context"
	"fmt"
	"time"

	"stemroom/config"
	"stemroom/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and makes sure the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket),
	)
	return nil
}

// GetMinioClient returns the MinIO client instance.
func GetMinioClient() *minio.Client {
	return minioClient
}

// MinioPresigner mints presigned PUT URLs against the configured bucket.
// It satisfies the upload service's Presigner interface.
type MinioPresigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewMinioPresigner creates a presigner over the initialized client.
func NewMinioPresigner(cfg *config.Config) *MinioPresigner {
	return &MinioPresigner{
		client: minioClient,
		bucket: cfg.MinioBucket,
		ttl:    cfg.PresignTTL,
	}
}

// PresignPut returns a presigned upload URL for objectKey plus the headers
// the uploader must send. The bytes move client-to-storage directly; this
// service never sees them.
func (p *MinioPresigner) PresignPut(ctx context.Context, objectKey, contentType string) (string, map[string]string, error) {
	if p.client == nil {
		return "", nil, fmt.Errorf("MinIO client not initialized")
	}

	u, err := p.client.PresignedPutObject(ctx, p.bucket, objectKey, p.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign put for %s: %w", objectKey, err)
	}

	headers := map[string]string{
		"Content-Type": contentType,
	}
	return u.String(), headers, nil
}

// OpenObject opens an object for reading. The returned object is a
// ReadSeeker, so callers can hand it to http.ServeContent for range
// requests.
func OpenObject(ctx context.Context, bucket, objectKey string) (*minio.Object, minio.ObjectInfo, error) {
	if minioClient == nil {
		return nil, minio.ObjectInfo{}, fmt.Errorf("MinIO client not initialized")
	}

	obj, err := minioClient.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, minio.ObjectInfo{}, fmt.Errorf("failed to open object %s: %w", objectKey, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, minio.ObjectInfo{}, fmt.Errorf("failed to stat object %s: %w", objectKey, err)
	}

	return obj, info, nil
}
