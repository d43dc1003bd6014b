package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"trackanalyzer/logger"

	"github.com/minio/minio-go/v7"
)

// contentTypes maps photo file extensions to upload content types. Unknown
// extensions fall through to a generic binary type; an odd extension must
// never block an upload.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

const genericContentType = "application/octet-stream"

// PhotoStore owns the reading-photos bucket: uploads, signed URLs and
// cascade cleanup. Object keys are namespaced per reading and lane with a
// timestamp suffix so repeated uploads for the same lane never collide.
type PhotoStore struct {
	client *minio.Client
	bucket string
}

// NewPhotoStore wraps a MinIO client and bucket name.
func NewPhotoStore(client *minio.Client, bucket string) *PhotoStore {
	return &PhotoStore{client: client, bucket: bucket}
}

// ObjectKey builds the bucket key for a lane photo:
// readings/<readingId>/<lane>-<epochMillis>.<ext>
func ObjectKey(readingID, lane, filename string, epochMs int64) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("readings/%s/%s-%d%s", readingID, lane, epochMs, ext)
}

// ContentTypeFor resolves the upload content type from a file extension.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return genericContentType
}

// Upload stores a photo object and returns its key.
func (s *PhotoStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo object %s: %w", key, err)
	}
	logger.Info("Photo uploaded", logger.String("key", key), logger.Int64("size", size))
	return key, nil
}

// SignedURL issues a time-limited read URL for a private object.
func (s *PhotoStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", path, err)
	}
	return u.String(), nil
}

// Remove deletes a single object. Missing objects are not an error.
func (s *PhotoStore) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove photo object %s: %w", path, err)
	}
	return nil
}

// RemoveReadingObjects deletes everything under a reading's prefix. Used by
// the delete cascades; failures are logged and swallowed by callers; photo
// garbage collection is best-effort.
func (s *PhotoStore) RemoveReadingObjects(ctx context.Context, readingID string) error {
	prefix := fmt.Sprintf("readings/%s/", readingID)

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	toDelete := make(chan minio.ObjectInfo)
	go func() {
		defer close(toDelete)
		for object := range objectCh {
			if object.Err != nil {
				logger.Warn("Failed to list photo object for removal",
					logger.String("prefix", prefix),
					logger.ErrorField(object.Err),
				)
				continue
			}
			toDelete <- object
		}
	}()

	return drainRemoveErrors(s.client.RemoveObjects(ctx, s.bucket, toDelete, minio.RemoveObjectsOptions{}))
}

// drainRemoveErrors consumes a RemoveObjects error channel to completion and
// returns the first failure. The channel must be fully drained: an early
// return would leave the library's sender and the listing goroutine blocked.
func drainRemoveErrors(errCh <-chan minio.RemoveObjectError) error {
	var firstErr error
	for rErr := range errCh {
		if rErr.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to remove photo object %s: %w", rErr.ObjectName, rErr.Err)
			continue
		}
		logger.Warn("Additional photo object removal failure",
			logger.String("object", rErr.ObjectName),
			logger.ErrorField(rErr.Err),
		)
	}
	return firstErr
}

// BucketStats summarizes the photo bucket for the CLI status command.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Stats walks the bucket (optionally under a prefix) and aggregates counts.
func (s *PhotoStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	stats := &BucketStats{}

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}

	return stats, nil
}

// FormatSize renders a byte count for the CLI report.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
