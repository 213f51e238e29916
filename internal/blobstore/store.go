package blobstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tidegate/vectorpipe/internal/config"
)

// Store abstracts the object storage backend. Exists/Upload operate on the
// configured bucket; Download takes an explicit bucket because storage
// notifications may reference objects outside it.
type Store interface {
	Bucket() string
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key, localPath string, metadata map[string]string) error
	Download(ctx context.Context, bucket, object, destPath string) error
	// URI renders the canonical address of a key in the configured bucket,
	// in a scheme the ingestion dispatcher classifies (gs:// or s3://).
	URI(key string) string
}

type Factory func(cfg config.BlobStoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.BlobStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("blob_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported blob store type: %s", cfg.Type)
	}
	return factory(cfg)
}

// ObjectPath builds the time-bucketed key {ns}/{YYYY}/{MM}/{DD}/{HH}/{file}.
// The hour bucket is what makes retried uploads of the same file land on the
// same key.
func ObjectPath(namespace, filename string, t time.Time) string {
	return path.Join(namespace, t.Format("2006"), t.Format("01"), t.Format("02"), t.Format("15"), filename)
}
