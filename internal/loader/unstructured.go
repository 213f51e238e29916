package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidegate/vectorpipe/internal/model"
)

type unstructuredLoader struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewUnstructuredLoader parses binary document formats through an
// unstructured partition API.
func NewUnstructuredLoader(endpoint, apiKey string) Loader {
	return &unstructuredLoader{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type unstructuredElement struct {
	Text     string `json:"text"`
	Metadata struct {
		PageNumber int `json:"page_number"`
	} `json:"metadata"`
}

func (l *unstructuredLoader) Load(ctx context.Context, source string, metadata map[string]string) ([]model.Document, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(source))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("buffer %s: %w", source, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if l.apiKey != "" {
		req.Header.Set("unstructured-api-key", l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call partition api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("partition api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var elements []unstructuredElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}

	var parts []string
	for _, el := range elements {
		if el.Text != "" {
			parts = append(parts, el.Text)
		}
	}
	doc := model.Document{
		PageContent: strings.Join(parts, "\n\n"),
		Metadata:    map[string]string{},
	}
	for k, v := range metadata {
		doc.Metadata[k] = v
	}
	return []model.Document{doc}, nil
}
