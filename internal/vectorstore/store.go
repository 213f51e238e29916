package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidegate/vectorpipe/internal/ai"
	"github.com/tidegate/vectorpipe/internal/db"
	"github.com/tidegate/vectorpipe/internal/model"
)

// VectorStore persists chunk documents into per-namespace collections.
type VectorStore interface {
	AddDocument(ctx context.Context, namespace string, doc model.Document) error
	DeleteBySource(ctx context.Context, namespace, source string) error
	// SourcesSince lists the distinct metadata sources written after a point
	// in time, for reporting.
	SourcesSince(ctx context.Context, namespace string, since time.Time) ([]string, error)
}

// Options carries the collaborators a backend may need. Embedder is optional;
// without one, backends store a zero vector.
type Options struct {
	Executor   *db.Executor
	Embedder   ai.IEmbedder
	VectorSize int
}

type Factory func(opts Options) (VectorStore, error)

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

func New(name string, opts Options) (VectorStore, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store: %s", name)
	}
	return factory(opts)
}
