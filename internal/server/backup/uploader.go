package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/google/uuid"
)

// ObjectPutter is the subset of *s3.Client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Snapshotter is implemented by *storage.Engine.
type Snapshotter interface {
	Snapshot(w io.Writer) (int64, error)
}

type Uploader struct {
	src    Snapshotter
	client ObjectPutter
	bucket string
	logger logging.Logger
	now    func() time.Time
}

func NewUploader(src Snapshotter, client ObjectPutter, bucket string, l logging.Logger) *Uploader {
	return &Uploader{
		src:    src,
		client: client,
		bucket: bucket,
		logger: l.With("module", "backup"),
		now:    time.Now,
	}
}

// SnapshotKey returns a fresh object key under the day of t.
func SnapshotKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("snapshots/%d/%02d/%02d/%v.db", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Upload stages a snapshot in a temporary file and puts it to the bucket.
// It returns the object key.
func (u *Uploader) Upload(ctx context.Context) (string, error) {
	f, err := os.CreateTemp("", "registadb-snapshot-*.db")
	if err != nil {
		return "", fmt.Errorf("stage snapshot: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	size, err := u.src.Snapshot(f)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("stage snapshot: %w", err)
	}

	key := SnapshotKey(u.now())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	u.logger.Info(ctx, "snapshot uploaded", "bucket", u.bucket, "key", key, "bytes", size)
	return key, nil
}

// Run uploads a snapshot every interval until ctx is done. Failed uploads
// are logged and retried at the next tick.
func (u *Uploader) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("backup interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.logger.Info(ctx, "Starting snapshot backups", "bucket", u.bucket, "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			u.logger.Info(ctx, "Stopping snapshot backups...")
			return nil
		case <-ticker.C:
			if _, err := u.Upload(ctx); err != nil {
				u.logger.Error(ctx, "snapshot backup failed", "error", err)
			}
		}
	}
}
