package parquet

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSUploader mirrors batch files into a Google Cloud Storage bucket.
// The bucket spec may carry an object prefix: "my-bucket/some/prefix".
type GCSUploader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSUploader creates an uploader using ambient credentials
// (workload identity or application default credentials).
func NewGCSUploader(ctx context.Context, bucketSpec string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	bucket, prefix, _ := strings.Cut(bucketSpec, "/")

	return &GCSUploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Upload writes one batch file to the bucket.
func (u *GCSUploader) Upload(ctx context.Context, name string, data []byte) error {
	object := name
	if u.prefix != "" {
		object = path.Join(u.prefix, name)
	}

	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", object, err)
	}
	return nil
}

// Close releases the underlying client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
