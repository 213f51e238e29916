package chunker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/tidegate/vectorpipe/internal/config"
	"github.com/tidegate/vectorpipe/internal/model"
)

var codeExts = map[string]struct{}{
	".go":    {},
	".py":    {},
	".js":    {},
	".ts":    {},
	".jsx":   {},
	".tsx":   {},
	".java":  {},
	".c":     {},
	".h":     {},
	".cpp":   {},
	".cc":    {},
	".cs":    {},
	".rb":    {},
	".rs":    {},
	".php":   {},
	".swift": {},
	".kt":    {},
	".scala": {},
	".sh":    {},
	".sql":   {},
}

var codeSeparators = []string{"\nfunc ", "\nclass ", "\ndef ", "\n\n", "\n", " ", ""}

// Engine splits loaded documents into embedding-sized chunks. The splitter is
// chosen from the source file extension; every chunk inherits a copy of its
// parent document's metadata.
type Engine struct {
	size    int
	overlap int
}

func NewEngine(cfg config.ChunkConfig) *Engine {
	return &Engine{size: cfg.Size, overlap: cfg.Overlap}
}

func (e *Engine) Chunk(ctx context.Context, docs []model.Document, ext string) ([]model.Document, error) {
	ext = strings.ToLower(ext)
	var out []model.Document
	for _, doc := range docs {
		// whitespace is collapsed before the splitter runs, so chunk
		// boundaries are computed on the flattened text
		content := normalizeWhitespace(doc.PageContent)
		if content == "" {
			continue
		}
		pieces, err := e.split(content, ext)
		if err != nil {
			return nil, fmt.Errorf("split document: %w", err)
		}
		for _, piece := range pieces {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			out = append(out, model.Document{
				PageContent: piece,
				Metadata:    doc.CloneMetadata(),
			})
		}
	}
	logutil.GetLogger(ctx).Info("document chunked",
		zap.String("ext", ext),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(out)),
	)
	return out, nil
}

// ChunkFile is Chunk with the extension taken from a file path.
func (e *Engine) ChunkFile(ctx context.Context, docs []model.Document, path string) ([]model.Document, error) {
	return e.Chunk(ctx, docs, filepath.Ext(path))
}

func (e *Engine) split(content, ext string) ([]string, error) {
	switch {
	case ext == ".md" || ext == ".markdown":
		return e.splitMarkdown(content)
	case isCodeExt(ext):
		sp := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(e.size),
			textsplitter.WithChunkOverlap(e.overlap),
			textsplitter.WithSeparators(codeSeparators),
		)
		return sp.SplitText(content)
	default:
		return e.splitRecursive(content)
	}
}

func (e *Engine) splitRecursive(content string) ([]string, error) {
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(e.size),
		textsplitter.WithChunkOverlap(e.overlap),
	)
	return sp.SplitText(content)
}

func isCodeExt(ext string) bool {
	_, ok := codeExts[ext]
	return ok
}

// normalizeWhitespace folds newlines, carriage returns and tabs into spaces
// and collapses runs of spaces, matching how upstream producers format text.
func normalizeWhitespace(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
