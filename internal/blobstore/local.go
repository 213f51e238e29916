package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidegate/vectorpipe/internal/config"
)

type localStore struct {
	root   string
	bucket string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(cfg config.BlobStoreConfig) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("blob_store.dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "local"
	}
	return &localStore{root: cfg.Dir, bucket: bucket}, nil
}

func (s *localStore) Bucket() string {
	return s.bucket
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, err)
}

func (s *localStore) Upload(ctx context.Context, key, localPath string, metadata map[string]string) error {
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	return copyFile(localPath, dest)
}

func (s *localStore) Download(ctx context.Context, bucket, object, destPath string) error {
	// local storage has a single root; the bucket component is ignored
	return copyFile(filepath.Join(s.root, filepath.FromSlash(object)), destPath)
}

func (s *localStore) URI(key string) string {
	return "gs://" + s.bucket + "/" + key
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
