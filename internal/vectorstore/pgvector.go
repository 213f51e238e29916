package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/tidegate/vectorpipe/internal/ai"
	"github.com/tidegate/vectorpipe/internal/db"
	"github.com/tidegate/vectorpipe/internal/model"
	"github.com/tidegate/vectorpipe/internal/pkg/dbutil"
	"github.com/tidegate/vectorpipe/internal/pkg/errs"
)

type pgvectorStore struct {
	exec       *db.Executor
	embedder   ai.IEmbedder
	vectorSize int
}

func init() {
	Register("pgvector", func(opts Options) (VectorStore, error) {
		if opts.Executor == nil {
			return nil, fmt.Errorf("pgvector store requires a database executor")
		}
		return &pgvectorStore{
			exec:       opts.Executor,
			embedder:   opts.Embedder,
			vectorSize: opts.VectorSize,
		}, nil
	})
}

func (s *pgvectorStore) AddDocument(ctx context.Context, namespace string, doc model.Document) error {
	if !db.ValidNamespace(namespace) {
		return fmt.Errorf("%w: %q", errs.ErrBadNamespace, namespace)
	}
	embedding, err := s.embed(ctx, doc.PageContent)
	if err != nil {
		return fmt.Errorf("embed chunk: %w", err)
	}
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	query, args, err := builder.BuildInsert(namespace, []map[string]interface{}{{
		"content":   doc.PageContent,
		"metadata":  metadata,
		"embedding": pgvector.NewVector(embedding),
	}})
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	query, args = dbutil.Finalize(query, args)
	return s.exec.Exec(ctx, query, args...)
}

func (s *pgvectorStore) DeleteBySource(ctx context.Context, namespace, source string) error {
	if !db.ValidNamespace(namespace) {
		return fmt.Errorf("%w: %q", errs.ErrBadNamespace, namespace)
	}
	query, args := dbutil.Finalize(
		fmt.Sprintf("DELETE FROM %s WHERE metadata->>'source' = ?", namespace),
		[]interface{}{source},
	)
	return s.exec.Exec(ctx, query, args...)
}

func (s *pgvectorStore) SourcesSince(ctx context.Context, namespace string, since time.Time) ([]string, error) {
	if !db.ValidNamespace(namespace) {
		return nil, fmt.Errorf("%w: %q", errs.ErrBadNamespace, namespace)
	}
	query, args := dbutil.Finalize(
		fmt.Sprintf("SELECT DISTINCT metadata->>'source' FROM %s WHERE created_at > ? AND metadata->>'source' IS NOT NULL", namespace),
		[]interface{}{since},
	)
	var sources []string
	if err := s.exec.Select(ctx, &sources, query, args...); err != nil {
		return nil, err
	}
	return sources, nil
}

func (s *pgvectorStore) embed(ctx context.Context, content string) ([]float32, error) {
	if s.embedder == nil {
		return make([]float32, s.vectorSize), nil
	}
	return s.embedder.Embed(ctx, content)
}
