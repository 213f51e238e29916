package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidegate/vectorpipe/internal/model"
)

const maxFetchBytes = 32 << 20

type urlLoader struct {
	client *http.Client
}

// NewURLLoader fetches a remote address and returns its body as one document.
func NewURLLoader() Loader {
	return &urlLoader{client: &http.Client{Timeout: 60 * time.Second}}
}

func (l *urlLoader) Load(ctx context.Context, source string, metadata map[string]string) ([]model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", source, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	content := strings.TrimSpace(string(data))
	doc := model.Document{
		PageContent: content,
		Metadata:    map[string]string{},
	}
	for k, v := range metadata {
		doc.Metadata[k] = v
	}
	return []model.Document{doc}, nil
}
