package loader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/model"
)

// Loader extracts documents from a source: a local file path for file
// loaders, an address for URL loaders. Metadata is attached to every
// extracted document.
type Loader interface {
	Load(ctx context.Context, source string, metadata map[string]string) ([]model.Document, error)
}

// extensions that need a real document parser rather than a plain read
var parsedExts = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".ppt":  {},
	".pptx": {},
	".xls":  {},
	".xlsx": {},
	".epub": {},
	".rtf":  {},
	".odt":  {},
}

// Set selects a loader per source shape. Binary document formats go through
// the unstructured API when one is configured; everything else is read as
// plain text.
type Set struct {
	text         Loader
	unstructured Loader
	url          Loader
}

func NewSet(cfg config.LoaderConfig) *Set {
	s := &Set{
		text: NewTextLoader(),
		url:  NewURLLoader(),
	}
	if cfg.UnstructuredURL != "" {
		s.unstructured = NewUnstructuredLoader(cfg.UnstructuredURL, cfg.UnstructuredKey)
	}
	return s
}

// ForFile picks the loader for a downloaded local file.
func (s *Set) ForFile(path string) Loader {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := parsedExts[ext]; ok && s.unstructured != nil {
		return s.unstructured
	}
	return s.text
}

// ForURL picks the loader for a remote address. Git and drive links resolve
// to plain fetches until dedicated loaders exist.
func (s *Set) ForURL(url string) Loader {
	return s.url
}
