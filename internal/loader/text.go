package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/tidegate/vectorpipe/internal/model"
)

type textLoader struct{}

// NewTextLoader reads a local file verbatim as a single document.
func NewTextLoader() Loader {
	return &textLoader{}
}

func (l *textLoader) Load(ctx context.Context, source string, metadata map[string]string) ([]model.Document, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	doc := model.Document{
		PageContent: string(data),
		Metadata:    map[string]string{},
	}
	for k, v := range metadata {
		doc.Metadata[k] = v
	}
	return []model.Document{doc}, nil
}
