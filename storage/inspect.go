package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats summarizes the contents of the bucket.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListObjects prints every object under prefix. Used by the minio
// diagnostic command.
func ListObjects(ctx context.Context, bucket, prefix string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	count := 0
	for obj := range minioClient.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		fmt.Printf("%-70s %12d  %s\n", obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
		count++
	}

	fmt.Printf("%d objects\n", count)
	return nil
}

// GetBucketStats walks the bucket and aggregates object count and size.
func GetBucketStats(ctx context.Context, bucket string) (*BucketStats, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("MinIO client not initialized")
	}

	stats := &BucketStats{}
	for obj := range minioClient.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
	}

	return stats, nil
}
