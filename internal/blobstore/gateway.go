package blobstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Provisioner prepares everything a namespace needs before its first object
// is processed (messaging topology, vector schema).
type Provisioner interface {
	EnsureNamespace(ctx context.Context, namespace string) error
}

// Gateway is the single write path into the object store. Uploads are
// deduplicated against the current and previous hour buckets so that retried
// deliveries of the same file do not fan out twice.
type Gateway struct {
	store       Store
	provisioner Provisioner
	now         func() time.Time
}

func NewGateway(store Store, provisioner Provisioner) *Gateway {
	return &Gateway{store: store, provisioner: provisioner, now: time.Now}
}

// SetClock overrides the time source. Tests use it to pin the hour bucket.
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Gateway) Store() Store {
	return g.store
}

// AddFile uploads a local file under the namespace's current hour bucket,
// unless the same filename already exists in the current or previous hour.
// It returns the canonical URI of the object and whether an upload happened.
func (g *Gateway) AddFile(ctx context.Context, namespace, localPath string, metadata map[string]string) (string, bool, error) {
	filename := filepath.Base(localPath)
	now := g.now().UTC()
	key := ObjectPath(namespace, filename, now)
	prevKey := ObjectPath(namespace, filename, now.Add(-time.Hour))

	for _, candidate := range []string{key, prevKey} {
		exists, err := g.store.Exists(ctx, candidate)
		if err != nil {
			return "", false, err
		}
		if exists {
			logutil.GetLogger(ctx).Info("object already stored, skipping upload",
				zap.String("namespace", namespace),
				zap.String("key", candidate),
			)
			return g.store.URI(candidate), false, nil
		}
	}

	md := map[string]string{"vector_name": namespace}
	for k, v := range metadata {
		md[k] = v
	}
	if err := g.store.Upload(ctx, key, localPath, md); err != nil {
		return "", false, fmt.Errorf("upload %s: %w", key, err)
	}
	// a fresh upload may be the first ever for this namespace
	if g.provisioner != nil {
		if err := g.provisioner.EnsureNamespace(ctx, namespace); err != nil {
			return "", false, fmt.Errorf("ensure namespace %s: %w", namespace, err)
		}
	}
	logutil.GetLogger(ctx).Info("object stored",
		zap.String("namespace", namespace),
		zap.String("key", key),
	)
	return g.store.URI(key), true, nil
}
