package vectorstore

import (
	"context"
	"sync"
	"time"

	"github.com/tidegate/vectorpipe/internal/model"
)

// Record is one stored document with its write time.
type Record struct {
	Document model.Document
	StoredAt time.Time
}

// MemoryStore keeps documents per namespace in process. It backs tests and
// local development.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]Record

	// FailWith, when set, makes every write fail. Tests use it to exercise
	// the consumer's fault tolerance.
	FailWith error
}

func init() {
	Register("memory", func(opts Options) (VectorStore, error) {
		return NewMemoryStore(), nil
	})
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]Record{}}
}

func (s *MemoryStore) AddDocument(ctx context.Context, namespace string, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.data[namespace] = append(s.data[namespace], Record{Document: doc, StoredAt: time.Now().UTC()})
	return nil
}

func (s *MemoryStore) DeleteBySource(ctx context.Context, namespace, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []Record
	for _, rec := range s.data[namespace] {
		if rec.Document.Metadata["source"] != source {
			kept = append(kept, rec)
		}
	}
	s.data[namespace] = kept
	return nil
}

func (s *MemoryStore) SourcesSince(ctx context.Context, namespace string, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var sources []string
	for _, rec := range s.data[namespace] {
		if !rec.StoredAt.After(since) {
			continue
		}
		src := rec.Document.Metadata["source"]
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources, nil
}

// Documents returns everything stored in a namespace, oldest first.
func (s *MemoryStore) Documents(namespace string) []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []model.Document
	for _, rec := range s.data[namespace] {
		docs = append(docs, rec.Document)
	}
	return docs
}
