package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/tidegate/vectorpipe/internal/config"
)

type gcsStore struct {
	client *storage.Client
	bucket string
}

func init() {
	Register("gcs", createGCSStore)
}

func createGCSStore(cfg config.BlobStoreConfig) (Store, error) {
	bucket := strings.TrimPrefix(cfg.Bucket, "gs://")
	if bucket == "" {
		return nil, fmt.Errorf("blob_store.bucket is required")
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: bucket}, nil
}

func (s *gcsStore) Bucket() string {
	return s.bucket
}

func (s *gcsStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("object attrs %s: %w", key, err)
}

func (s *gcsStore) Upload(ctx context.Context, key, localPath string, metadata map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.Metadata = metadata
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Download(ctx context.Context, bucket, object, destPath string) error {
	if bucket == "" {
		bucket = s.bucket
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("download gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

func (s *gcsStore) URI(key string) string {
	return "gs://" + s.bucket + "/" + key
}
